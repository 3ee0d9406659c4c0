package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// MarketRecordStore is an in-memory implementation of storage.MarketRecordStore.
type MarketRecordStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.MarketRecord // keyed by (identity, capture minute)
	nextID int64
	now    func() time.Time
}

// NewMarketRecordStore creates a new in-memory market record store.
func NewMarketRecordStore() *MarketRecordStore {
	return &MarketRecordStore{
		data: make(map[string]*domain.MarketRecord),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// dedupKey generates the unique key for a record: identity plus capture minute.
func dedupKey(r *domain.MarketRecord) string {
	return r.Identity().Key() + "|" + r.CaptureMinute().Format(time.RFC3339)
}

// Upsert writes records, replacing non-identity fields on conflict with the
// (identity, capture minute) key. Derived fields are recomputed before write.
func (s *MarketRecordStore) Upsert(_ context.Context, records []*domain.MarketRecord) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if r == nil || r.ProductID == "" || r.Provider == "" {
			return storage.ErrInvalidInput
		}

		recordCopy := *r
		if recordCopy.Region == "" {
			recordCopy.Region = domain.RegionGlobal
		}
		recordCopy.ComputeDerived()
		recordCopy.IngestedAt = s.now()

		key := dedupKey(&recordCopy)
		if existing, ok := s.data[key]; ok {
			recordCopy.ID = existing.ID
		} else {
			s.nextID++
			recordCopy.ID = s.nextID
		}
		s.data[key] = &recordCopy
	}

	return nil
}

// UpdateVolume applies a backfill to the newest record matching
// (provider, product, size, consigned). Returns ErrNotFound when no match.
func (s *MarketRecordStore) UpdateVolume(_ context.Context, u *domain.VolumeUpdate) error {
	if u == nil || u.ProductID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var target *domain.MarketRecord
	for _, r := range s.data {
		if r.Provider != u.Provider || r.ProductID != u.ProductID ||
			r.Size != u.Size || r.Consigned != u.Consigned {
			continue
		}
		if target == nil || r.CapturedAt.After(target.CapturedAt) ||
			(r.CapturedAt.Equal(target.CapturedAt) && r.ID > target.ID) {
			target = r
		}
	}
	if target == nil {
		return storage.ErrNotFound
	}

	sales72h := u.Sales72h
	sales30d := u.Sales30d
	target.Sales72h = &sales72h
	target.Sales30d = &sales30d
	if u.LastSale != nil {
		lastSale := *u.LastSale
		target.LastSale = &lastSale
	}
	if u.LastSaleAt != nil {
		lastSaleAt := *u.LastSaleAt
		target.LastSaleAt = &lastSaleAt
	}
	target.IngestedAt = s.now()

	return nil
}

// GetByIdentity retrieves the time series for one identity, ordered by
// capture time ASC.
func (s *MarketRecordStore) GetByIdentity(_ context.Context, id domain.RecordIdentity) ([]*domain.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := id.Key()
	var result []*domain.MarketRecord
	for _, r := range s.data {
		if r.Identity().Key() == key {
			recordCopy := *r
			result = append(result, &recordCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt.Before(result[j].CapturedAt)
	})

	return result, nil
}

// GetLatestByProduct retrieves the newest record per identity-without-time
// for one product identifier.
func (s *MarketRecordStore) GetLatestByProduct(_ context.Context, productID string) ([]*domain.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestWhere(func(r *domain.MarketRecord) bool {
		return r.ProductID == productID
	}), nil
}

// GetLatestPerIdentity retrieves the newest record for every distinct
// identity-without-time.
func (s *MarketRecordStore) GetLatestPerIdentity(_ context.Context) ([]*domain.MarketRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.latestWhere(func(*domain.MarketRecord) bool { return true }), nil
}

// latestWhere groups matching records by identity and keeps the newest by
// capture time. Caller must hold the lock.
func (s *MarketRecordStore) latestWhere(match func(*domain.MarketRecord) bool) []*domain.MarketRecord {
	latest := make(map[string]*domain.MarketRecord)
	for _, r := range s.data {
		if !match(r) {
			continue
		}
		key := r.Identity().Key()
		if cur, ok := latest[key]; !ok || r.CapturedAt.After(cur.CapturedAt) {
			latest[key] = r
		}
	}

	result := make([]*domain.MarketRecord, 0, len(latest))
	for _, r := range latest {
		recordCopy := *r
		result = append(result, &recordCopy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Identity().Key() < result[j].Identity().Key()
	})

	return result
}

var _ storage.MarketRecordStore = (*MarketRecordStore)(nil)
