// Package peer defines the parsed payload shapes of the peer marketplace
// read APIs: the pricing-insights endpoint (availability, first pass) and the
// recent-sales endpoint (volume backfill, second pass). Amounts are integer
// strings in minor units (cents).
package peer

import (
	"encoding/json"
	"strconv"
	"time"
)

// Condition descriptors. The canonical pipeline only ingests new product in
// undamaged packaging; every other combination is out of scope.
const (
	ConditionNew  = "new"
	ConditionUsed = "used"

	PackagingGood    = "good_condition"
	PackagingDamaged = "damaged"
	PackagingMissing = "missing"
)

// PricingInsightsResponse is the parsed pricing-insights response: variant
// entries keyed by size with condition descriptors and availability amounts.
type PricingInsightsResponse struct {
	CatalogID string           `json:"catalog_id"`
	Currency  string           `json:"currency"`
	Region    string           `json:"region,omitempty"`
	Variants  []PricingVariant `json:"variants"`
}

// PricingVariant is one size's pricing entry.
type PricingVariant struct {
	Size               json.Number   `json:"size"`
	ProductCondition   string        `json:"product_condition"`
	PackagingCondition string        `json:"packaging_condition"`
	Consigned          bool          `json:"consigned"`
	Availability       *Availability `json:"availability"`
}

// Availability carries the amounts and counts for a variant. Amounts are
// integer strings in cents; empty means the marketplace has no value.
type Availability struct {
	LowestListingPriceCents   string `json:"lowest_listing_price_cents"`
	HighestOfferPriceCents    string `json:"highest_offer_price_cents"`
	LastSoldPriceCents        string `json:"last_sold_price_cents"`
	GlobalIndicatorPriceCents string `json:"global_indicator_price_cents"`
	NumberOfListings          *int   `json:"number_of_listings"`
	NumberOfOffers            *int   `json:"number_of_offers"`
}

// RecentSalesResponse is the parsed recent-sales response: a flat list of
// individual sale events for one catalog item.
type RecentSalesResponse struct {
	CatalogID string      `json:"catalog_id"`
	Sales     []SaleEvent `json:"sales"`
}

// SaleEvent is a single completed sale.
type SaleEvent struct {
	PurchasedAt time.Time   `json:"purchased_at"`
	AmountCents string      `json:"amount_cents"`
	Size        json.Number `json:"size"`
	Consigned   bool        `json:"consigned"`
}

// SizeLabel normalizes a numeric size to its canonical label: "10.0" and
// "10" both become "10", "10.5" stays "10.5". Non-numeric sizes are kept
// verbatim.
func SizeLabel(n json.Number) string {
	f, err := n.Float64()
	if err != nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
