// Package ingestion orchestrates provider sync runs: fetch raw payloads,
// record them, normalize, and persist canonical records. Transport clients
// are injected as narrow fetcher interfaces so syncs stay testable without
// HTTP.
package ingestion

import (
	"context"
	"encoding/json"
)

// ResaleMarketFetcher retrieves the raw market payload for one product.
type ResaleMarketFetcher interface {
	FetchMarket(ctx context.Context, productID string) (json.RawMessage, error)
}

// PeerAvailabilityFetcher retrieves the raw pricing-insights payload for
// one catalog item.
type PeerAvailabilityFetcher interface {
	FetchPricingInsights(ctx context.Context, catalogID string) (json.RawMessage, error)
}

// PeerRecentSalesFetcher retrieves the raw recent-sales payload for one
// catalog item.
type PeerRecentSalesFetcher interface {
	FetchRecentSales(ctx context.Context, catalogID string) (json.RawMessage, error)
}
