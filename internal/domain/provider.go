package domain

// Provider identifies the marketplace a pricing fact came from.
type Provider string

// Known providers.
const (
	// ProviderResale is the sneaker resale marketplace. It prices a
	// standard tier and an optional expedited-shipping tier per variant.
	ProviderResale Provider = "resale"

	// ProviderPeer is the peer marketplace. It prices a standard tier and
	// an optional consigned tier per size, with condition descriptors.
	ProviderPeer Provider = "peer"
)

// RegionGlobal is the sentinel region for records without a region code.
const RegionGlobal = "global"
