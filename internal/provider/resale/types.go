// Package resale defines the parsed payload shapes of the sneaker resale
// marketplace read API. The HTTP client itself is an external collaborator;
// this package only models what it hands back, so nothing untyped crosses
// the raw-snapshot boundary.
package resale

// MarketResponse is the parsed "market" response: one entry per size variant
// with standard pricing, optional expedited-tier pricing, and volume/risk
// metrics. Amounts are decimal strings in major currency units.
type MarketResponse struct {
	ProductID string          `json:"productId"`
	Currency  string          `json:"currencyCode"`
	Region    string          `json:"region,omitempty"`
	Variants  []VariantMarket `json:"variants"`
}

// VariantMarket is market data for a single size variant.
type VariantMarket struct {
	VariantID string `json:"variantId"`
	SizeKey   string `json:"sizeKey"`

	// Standard tier amounts, decimal strings in major units. Empty when the
	// marketplace has no ask/bid/sale for the variant.
	LowestAskAmount  string `json:"lowestAskAmount"`
	HighestBidAmount string `json:"highestBidAmount"`
	LastSaleAmount   string `json:"lastSaleAmount"`

	// Expedited tier amounts. Present only when the variant has
	// expedited-shipping inventory.
	ExpeditedLowestAskAmount  string `json:"expeditedLowestAskAmount"`
	ExpeditedHighestBidAmount string `json:"expeditedHighestBidAmount"`

	// Volume and risk metrics. Shared between tiers; the marketplace does
	// not break them out for expedited inventory.
	SalesLast72Hours *int     `json:"salesLast72Hours"`
	SalesLast30Days  *int     `json:"salesLast30Days"`
	TotalSold        *int     `json:"totalSold"`
	AveragePrice     *float64 `json:"averageSalePrice"`
	Volatility       *float64 `json:"volatility"`
	PricePremium     *float64 `json:"pricePremium"`
}

// HasExpedited reports whether the variant carries any expedited-tier amount.
func (v *VariantMarket) HasExpedited() bool {
	return v.ExpeditedLowestAskAmount != "" || v.ExpeditedHighestBidAmount != ""
}
