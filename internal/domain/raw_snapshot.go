package domain

import (
	"encoding/json"
	"time"
)

// RawSnapshot is an immutable record of one provider API response, captured
// verbatim before any parsing. Corresponds to raw_snapshots table in
// PostgreSQL. Snapshots are append-only; the pipeline never mutates or
// deletes them.
type RawSnapshot struct {
	ID         string            // generated UUID
	Endpoint   string            // logical call name, e.g. "resale.market"
	Params     map[string]string // request parameters, stored permissively
	Body       json.RawMessage   // verbatim response body
	Digest     string            // SHA256 digest of the body
	CapturedAt time.Time
}

// Endpoint names for provider calls.
const (
	EndpointResaleMarket     = "resale.market"
	EndpointPeerAvailability = "peer.pricing_insights"
	EndpointPeerRecentSales  = "peer.recent_sales"
)
