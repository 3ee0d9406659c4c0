package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// RawSnapshotStore implements storage.RawSnapshotStore using PostgreSQL.
// The table is append-only; no update or delete statements exist here.
type RawSnapshotStore struct {
	pool *Pool
}

// NewRawSnapshotStore creates a new RawSnapshotStore.
func NewRawSnapshotStore(pool *Pool) *RawSnapshotStore {
	return &RawSnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RawSnapshotStore = (*RawSnapshotStore)(nil)

// Insert appends a new snapshot.
func (s *RawSnapshotStore) Insert(ctx context.Context, snap *domain.RawSnapshot) error {
	if snap == nil || snap.ID == "" || snap.Endpoint == "" {
		return storage.ErrInvalidInput
	}

	params, err := json.Marshal(snap.Params)
	if err != nil {
		return fmt.Errorf("marshal snapshot params: %w", err)
	}

	query := `
		INSERT INTO raw_snapshots (
			id, endpoint, params, body, digest, captured_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = s.pool.Exec(ctx, query,
		snap.ID,
		snap.Endpoint,
		params,
		[]byte(snap.Body),
		snap.Digest,
		snap.CapturedAt,
	)
	if err != nil {
		return fmt.Errorf("insert raw snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a snapshot by its ID. Returns ErrNotFound if not exists.
func (s *RawSnapshotStore) GetByID(ctx context.Context, id string) (*domain.RawSnapshot, error) {
	query := `
		SELECT id, endpoint, params, body, digest, captured_at
		FROM raw_snapshots
		WHERE id = $1
	`

	snap, err := scanRawSnapshot(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get raw snapshot by id: %w", err)
	}
	return snap, nil
}

// GetByEndpoint retrieves the most recent snapshots for an endpoint, newest
// first, up to limit.
func (s *RawSnapshotStore) GetByEndpoint(ctx context.Context, endpoint string, limit int) ([]*domain.RawSnapshot, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT id, endpoint, params, body, digest, captured_at
		FROM raw_snapshots
		WHERE endpoint = $1
		ORDER BY captured_at DESC
		LIMIT $2
	`

	rows, err := s.pool.Query(ctx, query, endpoint, limit)
	if err != nil {
		return nil, fmt.Errorf("get raw snapshots by endpoint: %w", err)
	}
	defer rows.Close()

	var snaps []*domain.RawSnapshot
	for rows.Next() {
		snap, err := scanRawSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan raw snapshot row: %w", err)
		}
		snaps = append(snaps, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate raw snapshot rows: %w", err)
	}

	return snaps, nil
}

// scanRawSnapshot scans a single row into a RawSnapshot.
func scanRawSnapshot(row pgx.Row) (*domain.RawSnapshot, error) {
	var (
		snap   domain.RawSnapshot
		params []byte
		body   []byte
	)

	err := row.Scan(
		&snap.ID,
		&snap.Endpoint,
		&params,
		&body,
		&snap.Digest,
		&snap.CapturedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(params) > 0 {
		if err := json.Unmarshal(params, &snap.Params); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot params: %w", err)
		}
	}
	snap.Body = json.RawMessage(body)

	return &snap, nil
}
