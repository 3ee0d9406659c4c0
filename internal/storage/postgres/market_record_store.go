package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// MarketRecordStore implements storage.MarketRecordStore using PostgreSQL.
//
// The dedup key is expressed as a unique constraint over the identity columns
// plus capture_minute; conflict resolution happens in the database, so
// concurrent writers need no coordination. The nullable variant identifier is
// stored as an empty string because NULLs never collide in a unique index.
type MarketRecordStore struct {
	pool *Pool
}

// NewMarketRecordStore creates a new MarketRecordStore.
func NewMarketRecordStore(pool *Pool) *MarketRecordStore {
	return &MarketRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.MarketRecordStore = (*MarketRecordStore)(nil)

const marketRecordColumns = `
	id, provider, product_id, variant_id, size, currency, region,
	expedited, consigned,
	lowest_ask, highest_bid, last_sale,
	lowest_ask_base, highest_bid_base, last_sale_base,
	spread, spread_pct,
	sales_72h, sales_30d, total_sales, listing_count, offer_count, last_sale_at,
	average_price, volatility, price_premium,
	snapshot_id, captured_at, capture_minute, ingested_at`

const upsertMarketRecordQuery = `
	INSERT INTO market_records (
		provider, product_id, variant_id, size, currency, region,
		expedited, consigned,
		lowest_ask, highest_bid, last_sale,
		lowest_ask_base, highest_bid_base, last_sale_base,
		spread, spread_pct,
		sales_72h, sales_30d, total_sales, listing_count, offer_count, last_sale_at,
		average_price, volatility, price_premium,
		snapshot_id, captured_at, capture_minute, ingested_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8,
		$9, $10, $11, $12, $13, $14, $15, $16,
		$17, $18, $19, $20, $21, $22, $23, $24, $25,
		$26, $27, $28, now()
	)
	ON CONFLICT (provider, product_id, variant_id, size, currency, region,
	             expedited, consigned, capture_minute)
	DO UPDATE SET
		lowest_ask       = EXCLUDED.lowest_ask,
		highest_bid      = EXCLUDED.highest_bid,
		last_sale        = EXCLUDED.last_sale,
		lowest_ask_base  = EXCLUDED.lowest_ask_base,
		highest_bid_base = EXCLUDED.highest_bid_base,
		last_sale_base   = EXCLUDED.last_sale_base,
		spread           = EXCLUDED.spread,
		spread_pct       = EXCLUDED.spread_pct,
		sales_72h        = EXCLUDED.sales_72h,
		sales_30d        = EXCLUDED.sales_30d,
		total_sales      = EXCLUDED.total_sales,
		listing_count    = EXCLUDED.listing_count,
		offer_count      = EXCLUDED.offer_count,
		last_sale_at     = EXCLUDED.last_sale_at,
		average_price    = EXCLUDED.average_price,
		volatility       = EXCLUDED.volatility,
		price_premium    = EXCLUDED.price_premium,
		snapshot_id      = EXCLUDED.snapshot_id,
		captured_at      = EXCLUDED.captured_at,
		ingested_at      = now()
`

// Upsert writes records, replacing non-identity fields of any row that
// conflicts on (identity, capture minute). Derived fields are recomputed
// before write.
func (s *MarketRecordStore) Upsert(ctx context.Context, records []*domain.MarketRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		if r == nil || r.ProductID == "" || r.Provider == "" {
			return storage.ErrInvalidInput
		}

		region := r.Region
		if region == "" {
			region = domain.RegionGlobal
		}
		variant := ""
		if r.VariantID != nil {
			variant = *r.VariantID
		}

		recordCopy := *r
		recordCopy.ComputeDerived()

		_, err := tx.Exec(ctx, upsertMarketRecordQuery,
			recordCopy.Provider, recordCopy.ProductID, variant,
			recordCopy.Size, recordCopy.Currency, region,
			recordCopy.Expedited, recordCopy.Consigned,
			recordCopy.LowestAsk, recordCopy.HighestBid, recordCopy.LastSale,
			recordCopy.LowestAskBase, recordCopy.HighestBidBase, recordCopy.LastSaleBase,
			recordCopy.Spread, recordCopy.SpreadPct,
			recordCopy.Sales72h, recordCopy.Sales30d, recordCopy.TotalSales,
			recordCopy.ListingCount, recordCopy.OfferCount, recordCopy.LastSaleAt,
			recordCopy.AveragePrice, recordCopy.Volatility, recordCopy.PricePremium,
			recordCopy.SnapshotID, recordCopy.CapturedAt, recordCopy.CaptureMinute(),
		)
		if err != nil {
			return fmt.Errorf("upsert market record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// UpdateVolume applies a backfill to the newest record matching
// (provider, product, size, consigned). Only the volume, last-sale, and
// ingested_at columns change. Returns ErrNotFound when no record matches.
func (s *MarketRecordStore) UpdateVolume(ctx context.Context, u *domain.VolumeUpdate) error {
	if u == nil || u.ProductID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		UPDATE market_records SET
			sales_72h    = $1,
			sales_30d    = $2,
			last_sale    = COALESCE($3, last_sale),
			last_sale_at = COALESCE($4, last_sale_at),
			ingested_at  = now()
		WHERE id = (
			SELECT id FROM market_records
			WHERE provider = $5 AND product_id = $6 AND size = $7 AND consigned = $8
			ORDER BY captured_at DESC, id DESC
			LIMIT 1
		)
	`

	tag, err := s.pool.Exec(ctx, query,
		u.Sales72h, u.Sales30d, u.LastSale, u.LastSaleAt,
		u.Provider, u.ProductID, u.Size, u.Consigned,
	)
	if err != nil {
		return fmt.Errorf("update volume fields: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByIdentity retrieves the time series for one identity, ordered by
// capture time ASC.
func (s *MarketRecordStore) GetByIdentity(ctx context.Context, id domain.RecordIdentity) ([]*domain.MarketRecord, error) {
	variant := ""
	if id.VariantID != nil {
		variant = *id.VariantID
	}
	region := id.Region
	if region == "" {
		region = domain.RegionGlobal
	}

	query := `
		SELECT ` + marketRecordColumns + `
		FROM market_records
		WHERE provider = $1 AND product_id = $2 AND variant_id = $3
		  AND size = $4 AND currency = $5 AND region = $6
		  AND expedited = $7 AND consigned = $8
		ORDER BY captured_at ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query,
		id.Provider, id.ProductID, variant, id.Size, id.Currency, region,
		id.Expedited, id.Consigned,
	)
	if err != nil {
		return nil, fmt.Errorf("get market records by identity: %w", err)
	}
	defer rows.Close()

	return scanMarketRecords(rows)
}

// GetLatestByProduct retrieves the newest record per identity-without-time
// for one product identifier.
func (s *MarketRecordStore) GetLatestByProduct(ctx context.Context, productID string) ([]*domain.MarketRecord, error) {
	query := `
		SELECT DISTINCT ON (provider, product_id, variant_id, size, currency, region, expedited, consigned)
		` + marketRecordColumns + `
		FROM market_records
		WHERE product_id = $1
		ORDER BY provider, product_id, variant_id, size, currency, region, expedited, consigned,
		         captured_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("get latest market records by product: %w", err)
	}
	defer rows.Close()

	return scanMarketRecords(rows)
}

// GetLatestPerIdentity retrieves the newest record for every distinct
// identity-without-time.
func (s *MarketRecordStore) GetLatestPerIdentity(ctx context.Context) ([]*domain.MarketRecord, error) {
	query := `
		SELECT DISTINCT ON (provider, product_id, variant_id, size, currency, region, expedited, consigned)
		` + marketRecordColumns + `
		FROM market_records
		ORDER BY provider, product_id, variant_id, size, currency, region, expedited, consigned,
		         captured_at DESC, id DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get latest market records: %w", err)
	}
	defer rows.Close()

	return scanMarketRecords(rows)
}

// scanMarketRecords scans multiple rows into a slice of MarketRecord.
func scanMarketRecords(rows pgx.Rows) ([]*domain.MarketRecord, error) {
	var records []*domain.MarketRecord

	for rows.Next() {
		r, err := scanMarketRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market record row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market record rows: %w", err)
	}

	return records, nil
}

// scanMarketRecord scans a single row. The empty-string variant sentinel maps
// back to nil.
func scanMarketRecord(row pgx.Row) (*domain.MarketRecord, error) {
	var (
		r             domain.MarketRecord
		variant       string
		captureMinute time.Time
	)

	err := row.Scan(
		&r.ID, &r.Provider, &r.ProductID, &variant, &r.Size, &r.Currency, &r.Region,
		&r.Expedited, &r.Consigned,
		&r.LowestAsk, &r.HighestBid, &r.LastSale,
		&r.LowestAskBase, &r.HighestBidBase, &r.LastSaleBase,
		&r.Spread, &r.SpreadPct,
		&r.Sales72h, &r.Sales30d, &r.TotalSales, &r.ListingCount, &r.OfferCount, &r.LastSaleAt,
		&r.AveragePrice, &r.Volatility, &r.PricePremium,
		&r.SnapshotID, &r.CapturedAt, &captureMinute, &r.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	if variant != "" {
		r.VariantID = &variant
	}

	return &r, nil
}
