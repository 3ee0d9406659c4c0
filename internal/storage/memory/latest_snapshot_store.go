package memory

import (
	"context"
	"sort"
	"sync"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// LatestSnapshotStore is an in-memory implementation of
// storage.LatestSnapshotStore. Replace swaps the whole generation at once, so
// readers never observe a half-applied rebuild.
type LatestSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MarketRecord // keyed by identity-without-time
}

// NewLatestSnapshotStore creates a new in-memory latest snapshot store.
func NewLatestSnapshotStore() *LatestSnapshotStore {
	return &LatestSnapshotStore{
		data: make(map[string]*domain.MarketRecord),
	}
}

// Replace swaps the projection's contents for the given rows.
func (s *LatestSnapshotStore) Replace(_ context.Context, records []*domain.MarketRecord) error {
	next := make(map[string]*domain.MarketRecord, len(records))
	for _, r := range records {
		if r == nil || r.ProductID == "" {
			return storage.ErrInvalidInput
		}
		recordCopy := *r
		next[r.Identity().Key()] = &recordCopy
	}

	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

// GetByProduct retrieves all projection rows for a product identifier.
func (s *LatestSnapshotStore) GetByProduct(_ context.Context, productID string) ([]*domain.MarketRecord, error) {
	return s.where(func(r *domain.MarketRecord) bool {
		return r.ProductID == productID
	}), nil
}

// GetByProductSizeCurrency retrieves projection rows for one
// (product, size, currency) across all providers and tiers.
func (s *LatestSnapshotStore) GetByProductSizeCurrency(_ context.Context, productID, size, currency string) ([]*domain.MarketRecord, error) {
	return s.where(func(r *domain.MarketRecord) bool {
		return r.ProductID == productID && r.Size == size && r.Currency == currency
	}), nil
}

func (s *LatestSnapshotStore) where(match func(*domain.MarketRecord) bool) []*domain.MarketRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MarketRecord
	for _, r := range s.data {
		if match(r) {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Identity().Key() < result[j].Identity().Key()
	})

	return result
}

var _ storage.LatestSnapshotStore = (*LatestSnapshotStore)(nil)
