package memory

import (
	"context"
	"sort"
	"sync"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// RawSnapshotStore is an in-memory implementation of storage.RawSnapshotStore.
type RawSnapshotStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RawSnapshot // keyed by snapshot ID
}

// NewRawSnapshotStore creates a new in-memory raw snapshot store.
func NewRawSnapshotStore() *RawSnapshotStore {
	return &RawSnapshotStore{
		data: make(map[string]*domain.RawSnapshot),
	}
}

// Insert appends a new snapshot.
func (s *RawSnapshotStore) Insert(_ context.Context, snap *domain.RawSnapshot) error {
	if snap == nil || snap.ID == "" || snap.Endpoint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapCopy := *snap
	s.data[snap.ID] = &snapCopy
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *RawSnapshotStore) GetByID(_ context.Context, id string) (*domain.RawSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	snapCopy := *snap
	return &snapCopy, nil
}

// GetByEndpoint retrieves the most recent snapshots for an endpoint, newest
// first, up to limit.
func (s *RawSnapshotStore) GetByEndpoint(_ context.Context, endpoint string, limit int) ([]*domain.RawSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RawSnapshot
	for _, snap := range s.data {
		if snap.Endpoint == endpoint {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CapturedAt.After(result[j].CapturedAt)
	})

	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ storage.RawSnapshotStore = (*RawSnapshotStore)(nil)
