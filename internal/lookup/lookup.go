// Package lookup answers pricing questions against the latest-snapshot
// projection. Queries read the projection first; when it has no rows for
// the product, the canonical record store answers instead, so a product
// ingested but not yet projected still resolves.
package lookup

import (
	"context"
	"errors"
	"time"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// ErrNoPriceData means the projection holds no usable price for the query.
// Callers distinguish it from transport errors: no data is an answer.
var ErrNoPriceData = errors.New("no price data available")

// PriceQuote is a single resolved price with its provenance.
type PriceQuote struct {
	Amount     float64
	Currency   string
	Provider   domain.Provider
	Expedited  bool
	Consigned  bool
	SnapshotID *string
	CapturedAt time.Time
}

// PricingOptions holds the newest record for each provider tier of one
// (product, size, currency). A nil slot means the tier has never been
// observed.
type PricingOptions struct {
	ResaleStandard  *domain.MarketRecord
	ResaleExpedited *domain.MarketRecord
	PeerStandard    *domain.MarketRecord
	PeerConsigned   *domain.MarketRecord
}

// Service answers price queries from the latest-snapshot store with the
// canonical record store as fallback. A nil record store disables the
// fallback.
type Service struct {
	latest  storage.LatestSnapshotStore
	records storage.MarketRecordStore
}

func NewService(latest storage.LatestSnapshotStore, records storage.MarketRecordStore) *Service {
	return &Service{latest: latest, records: records}
}

// fetch reads the projection rows for one (product, size, currency).
// An empty projection answer falls back to the newest record per identity
// from the canonical store, filtered to the size and currency.
func (s *Service) fetch(ctx context.Context, productID, size, currency string) ([]*domain.MarketRecord, error) {
	rows, err := s.latest.GetByProductSizeCurrency(ctx, productID, size, currency)
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 || s.records == nil {
		return rows, nil
	}

	all, err := s.records.GetLatestByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	var matched []*domain.MarketRecord
	for _, r := range all {
		if r.Size == size && r.Currency == currency {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// BestPrice returns the lowest available ask across all providers and tiers
// for a (product, size, currency). Rows without an ask do not compete.
// Returns ErrNoPriceData when no row carries an ask.
func (s *Service) BestPrice(ctx context.Context, productID, size, currency string) (*PriceQuote, error) {
	records, err := s.fetch(ctx, productID, size, currency)
	if err != nil {
		return nil, err
	}

	var best *domain.MarketRecord
	for _, r := range records {
		if r.LowestAsk == nil {
			continue
		}
		if best == nil || *r.LowestAsk < *best.LowestAsk {
			best = r
		}
	}
	if best == nil {
		return nil, ErrNoPriceData
	}

	return &PriceQuote{
		Amount:     *best.LowestAsk,
		Currency:   best.Currency,
		Provider:   best.Provider,
		Expedited:  best.Expedited,
		Consigned:  best.Consigned,
		SnapshotID: best.SnapshotID,
		CapturedAt: best.CapturedAt,
	}, nil
}

// StandardPricing returns the standard-tier rows, one per provider, for a
// (product, size, currency). Expedited and consigned tiers are excluded.
// Returns ErrNoPriceData when no standard-tier row exists.
func (s *Service) StandardPricing(ctx context.Context, productID, size, currency string) ([]*domain.MarketRecord, error) {
	records, err := s.fetch(ctx, productID, size, currency)
	if err != nil {
		return nil, err
	}

	var standard []*domain.MarketRecord
	for _, r := range records {
		if !r.Expedited && !r.Consigned {
			standard = append(standard, r)
		}
	}
	if len(standard) == 0 {
		return nil, ErrNoPriceData
	}
	return standard, nil
}

// AllPricingOptions returns every provider tier observed for a
// (product, size, currency). Unlike BestPrice it never fails on missing
// data: an all-nil result is a valid answer.
func (s *Service) AllPricingOptions(ctx context.Context, productID, size, currency string) (*PricingOptions, error) {
	records, err := s.fetch(ctx, productID, size, currency)
	if err != nil {
		return nil, err
	}

	opts := &PricingOptions{}
	for _, r := range records {
		switch {
		case r.Provider == domain.ProviderResale && r.Expedited:
			opts.ResaleExpedited = r
		case r.Provider == domain.ProviderResale:
			opts.ResaleStandard = r
		case r.Provider == domain.ProviderPeer && r.Consigned:
			opts.PeerConsigned = r
		case r.Provider == domain.ProviderPeer:
			opts.PeerStandard = r
		}
	}
	return opts, nil
}
