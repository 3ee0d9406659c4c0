package domain

import (
	"fmt"
	"time"
)

// MarketRecord is one canonical pricing fact: a normalized observation for a
// specific provider+product+size+currency+tier at a point in time.
// Corresponds to market_records table in PostgreSQL.
//
// All amounts are major currency units regardless of how the source provider
// encodes them. Optional fields are pointers; nil means the provider did not
// supply the value (never zero).
type MarketRecord struct {
	ID int64 // BIGSERIAL primary key

	// Identity fields. Together with the capture minute they form the
	// dedup key.
	Provider  Provider // "resale" | "peer"
	ProductID string   // provider-side product identifier
	VariantID *string  // provider-side variant identifier, nil when the provider keys by size only
	Size      string   // size label, e.g. "10", "10.5"
	Currency  string   // ISO currency code
	Region    string   // region code, RegionGlobal when unspecified
	Expedited bool     // resale expedited-shipping tier
	Consigned bool     // peer consigned tier

	// Pricing fields, major units.
	LowestAsk  *float64
	HighestBid *float64
	LastSale   *float64

	// Base-currency counterparts, populated by the external FX step.
	LowestAskBase  *float64
	HighestBidBase *float64
	LastSaleBase   *float64

	// Derived fields, computed by ComputeDerived. Mappers never set these.
	Spread    *float64 // lowest ask - highest bid
	SpreadPct *float64 // spread / lowest ask * 100

	// Volume fields. Null on insert for the peer provider; backfilled by
	// the recent-sales pass. The resale mapper populates them directly.
	Sales72h     *int
	Sales30d     *int
	TotalSales   *int
	ListingCount *int
	OfferCount   *int
	LastSaleAt   *time.Time // timestamp of the most recent sale, when known

	// Risk metrics, resale provider only.
	AveragePrice *float64
	Volatility   *float64
	PricePremium *float64

	// Provenance.
	SnapshotID *string   // weak reference to the raw snapshot that produced this fact
	CapturedAt time.Time // when the provider says the data is as-of
	IngestedAt time.Time // when this row was last written
}

// RecordIdentity is the identity-without-time composite of a MarketRecord.
type RecordIdentity struct {
	Provider  Provider
	ProductID string
	VariantID *string
	Size      string
	Currency  string
	Region    string
	Expedited bool
	Consigned bool
}

// Identity returns the identity-without-time composite for the record.
func (r *MarketRecord) Identity() RecordIdentity {
	return RecordIdentity{
		Provider:  r.Provider,
		ProductID: r.ProductID,
		VariantID: r.VariantID,
		Size:      r.Size,
		Currency:  r.Currency,
		Region:    r.Region,
		Expedited: r.Expedited,
		Consigned: r.Consigned,
	}
}

// Key returns the canonical string form of the identity, used as a map key by
// in-memory stores and as the stable ordering for dedup checks.
func (id RecordIdentity) Key() string {
	variant := ""
	if id.VariantID != nil {
		variant = *id.VariantID
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%t|%t",
		id.Provider, id.ProductID, variant, id.Size, id.Currency, id.Region,
		id.Expedited, id.Consigned)
}

// CaptureMinute returns CapturedAt truncated to the minute, the time bucket
// of the dedup key. Two ingestions of the same identity within one minute
// collapse into one row; different minutes are distinct time-series rows.
func (r *MarketRecord) CaptureMinute() time.Time {
	return r.CapturedAt.UTC().Truncate(time.Minute)
}

// ComputeDerived recomputes Spread and SpreadPct from the pricing fields.
// Spread is nil unless both ask and bid are present. SpreadPct is nil unless
// the lowest ask is present and positive.
func (r *MarketRecord) ComputeDerived() {
	r.Spread = nil
	r.SpreadPct = nil

	if r.LowestAsk == nil || r.HighestBid == nil {
		return
	}
	spread := *r.LowestAsk - *r.HighestBid
	r.Spread = &spread

	if *r.LowestAsk <= 0 {
		return
	}
	pct := spread / *r.LowestAsk * 100
	r.SpreadPct = &pct
}
