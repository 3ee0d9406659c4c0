package storage

import (
	"context"

	"solemarket-pipeline/internal/domain"
)

// RawSnapshotStore provides access to raw_snapshots storage. The store is
// append-only: no update or delete operation exists, and retention is an
// external concern.
type RawSnapshotStore interface {
	// Insert appends a new snapshot.
	Insert(ctx context.Context, s *domain.RawSnapshot) error

	// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.RawSnapshot, error)

	// GetByEndpoint retrieves the most recent snapshots for an endpoint,
	// newest first, up to limit.
	GetByEndpoint(ctx context.Context, endpoint string, limit int) ([]*domain.RawSnapshot, error)
}

// MarketRecordStore provides access to market_records storage, the canonical
// deduplicating record store.
type MarketRecordStore interface {
	// Upsert writes records, replacing the non-identity fields of any row
	// that conflicts on (identity, capture minute). Derived fields are
	// recomputed before write; IngestedAt is refreshed on every write.
	// Safe under concurrent writers.
	Upsert(ctx context.Context, records []*domain.MarketRecord) error

	// UpdateVolume applies a recent-sales backfill to the newest record
	// matching (provider, product, size, consigned), regardless of capture
	// minute. Only the volume, last-sale, and IngestedAt fields change.
	// Returns ErrNotFound when no record matches.
	UpdateVolume(ctx context.Context, u *domain.VolumeUpdate) error

	// GetByIdentity retrieves the full time series for one identity,
	// ordered by capture time ASC.
	GetByIdentity(ctx context.Context, id domain.RecordIdentity) ([]*domain.MarketRecord, error)

	// GetLatestByProduct retrieves, for one provider-side product
	// identifier, the newest record per identity-without-time.
	GetLatestByProduct(ctx context.Context, productID string) ([]*domain.MarketRecord, error)

	// GetLatestPerIdentity retrieves the newest record for every distinct
	// identity-without-time. Source query for projection rebuilds.
	GetLatestPerIdentity(ctx context.Context) ([]*domain.MarketRecord, error)
}

// LatestSnapshotStore provides access to the latest_snapshots projection:
// one row per identity-without-time, fully derived, rebuildable at any time.
type LatestSnapshotStore interface {
	// Replace swaps the projection's contents for the given rows. Readers
	// may see the previous generation during a rebuild but never a
	// partially-updated row.
	Replace(ctx context.Context, records []*domain.MarketRecord) error

	// GetByProduct retrieves all projection rows for a product identifier.
	GetByProduct(ctx context.Context, productID string) ([]*domain.MarketRecord, error)

	// GetByProductSizeCurrency retrieves projection rows for one
	// (product, size label, currency) across all providers and tiers.
	GetByProductSizeCurrency(ctx context.Context, productID, size, currency string) ([]*domain.MarketRecord, error)
}
