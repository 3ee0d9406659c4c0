package normalization

import (
	"encoding/json"
	"testing"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/provider/peer"
)

func goodVariant(size string, avail *peer.Availability) peer.PricingVariant {
	return peer.PricingVariant{
		Size:               json.Number(size),
		ProductCondition:   peer.ConditionNew,
		PackagingCondition: peer.PackagingGood,
		Availability:       avail,
	}
}

func TestMapPeerAvailability_CentsToMajor(t *testing.T) {
	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants: []peer.PricingVariant{
			goodVariant("10", &peer.Availability{
				LowestListingPriceCents: "14500",
				HighestOfferPriceCents:  "13000",
				LastSoldPriceCents:      "13950",
				NumberOfListings:        intp(12),
				NumberOfOffers:          intp(4),
			}),
		},
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{}, "snap-1", capturedAt, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	r := records[0]
	if r.Provider != domain.ProviderPeer {
		t.Errorf("Provider mismatch: got %s", r.Provider)
	}
	if r.LowestAsk == nil || *r.LowestAsk != 145.00 {
		t.Errorf("LowestAsk mismatch: got %v", r.LowestAsk)
	}
	if r.HighestBid == nil || *r.HighestBid != 130.00 {
		t.Errorf("HighestBid mismatch: got %v", r.HighestBid)
	}
	if r.LastSale == nil || *r.LastSale != 139.50 {
		t.Errorf("LastSale mismatch: got %v", r.LastSale)
	}
	if r.ListingCount == nil || *r.ListingCount != 12 {
		t.Errorf("ListingCount mismatch: got %v", r.ListingCount)
	}
	if r.Sales72h != nil || r.Sales30d != nil {
		t.Error("sales windows stay nil until the recent-sales backfill")
	}
}

func TestMapPeerAvailability_ConditionLock(t *testing.T) {
	used := goodVariant("10", nil)
	used.ProductCondition = peer.ConditionUsed

	damaged := goodVariant("10.5", nil)
	damaged.PackagingCondition = peer.PackagingDamaged

	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants:  []peer.PricingVariant{used, damaged, goodVariant("11", nil)},
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{}, "", capturedAt, testLogger())
	if len(records) != 1 {
		t.Fatalf("only new product in good packaging is canonical, got %d records", len(records))
	}
	if records[0].Size != "11" {
		t.Errorf("wrong variant survived: %s", records[0].Size)
	}
}

func TestMapPeerAvailability_ConsignedGate(t *testing.T) {
	consigned := goodVariant("10", &peer.Availability{LowestListingPriceCents: "15500"})
	consigned.Consigned = true

	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants:  []peer.PricingVariant{consigned},
	}

	if records := MapPeerAvailability(resp, AvailabilityOptions{}, "", capturedAt, testLogger()); len(records) != 0 {
		t.Fatalf("consigned variants should be skipped by default, got %d", len(records))
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{IncludeConsigned: true}, "", capturedAt, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 consigned record, got %d", len(records))
	}
	if !records[0].Consigned {
		t.Error("record should carry the consigned flag")
	}
}

func TestMapPeerAvailability_LastSaleFallback(t *testing.T) {
	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants: []peer.PricingVariant{
			goodVariant("10", &peer.Availability{GlobalIndicatorPriceCents: "14200"}),
		},
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{}, "", capturedAt, testLogger())
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].LastSale == nil || *records[0].LastSale != 142.00 {
		t.Errorf("LastSale should fall back to the global indicator, got %v", records[0].LastSale)
	}
}

func TestMapPeerAvailability_NoAvailabilityStillEmitted(t *testing.T) {
	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants:  []peer.PricingVariant{goodVariant("10", nil)},
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{}, "", capturedAt, testLogger())
	if len(records) != 1 {
		t.Fatalf("variant without availability should still produce a record, got %d", len(records))
	}
	r := records[0]
	if r.LowestAsk != nil || r.HighestBid != nil || r.LastSale != nil {
		t.Error("absent amounts must be nil")
	}
}

func TestMapPeerAvailability_SizeNormalized(t *testing.T) {
	resp := &peer.PricingInsightsResponse{
		CatalogID: "cat-1",
		Currency:  "USD",
		Variants:  []peer.PricingVariant{goodVariant("10.0", nil)},
	}

	records := MapPeerAvailability(resp, AvailabilityOptions{}, "", capturedAt, testLogger())
	if records[0].Size != "10" {
		t.Errorf("size label should normalize 10.0 to 10, got %s", records[0].Size)
	}
}
