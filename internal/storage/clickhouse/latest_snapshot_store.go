package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage"
)

// LatestSnapshotStore implements storage.LatestSnapshotStore using ClickHouse.
//
// The table is a ReplacingMergeTree keyed by the full identity columns and
// versioned by ingested_at: a rebuild inserts whole rows and the engine
// collapses older generations in the background, so readers either see the
// previous generation or the new one, never a partial row. Canonical records
// are never deleted upstream, so every rebuild covers every identity. Reads
// use FINAL to resolve not-yet-merged duplicates. The nullable variant
// identifier is stored as an empty string so it can participate in the
// ORDER BY key, mirroring the Postgres dedup constraint.
type LatestSnapshotStore struct {
	conn *Conn
}

// NewLatestSnapshotStore creates a new LatestSnapshotStore.
func NewLatestSnapshotStore(conn *Conn) *LatestSnapshotStore {
	return &LatestSnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.LatestSnapshotStore = (*LatestSnapshotStore)(nil)

const latestSnapshotColumns = `
	provider, product_id, variant_id, size, currency, region,
	expedited, consigned,
	lowest_ask, highest_bid, last_sale,
	lowest_ask_base, highest_bid_base, last_sale_base,
	spread, spread_pct,
	sales_72h, sales_30d, total_sales, listing_count, offer_count, last_sale_at,
	average_price, volatility, price_premium,
	snapshot_id, captured_at, ingested_at`

// Replace writes a new generation of projection rows.
func (s *LatestSnapshotStore) Replace(ctx context.Context, records []*domain.MarketRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO latest_snapshots (`+latestSnapshotColumns+`)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		if r == nil || r.ProductID == "" {
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

		err = batch.Append(
			string(r.Provider), r.ProductID, variant, r.Size, r.Currency, region,
			r.Expedited, r.Consigned,
			r.LowestAsk, r.HighestBid, r.LastSale,
			r.LowestAskBase, r.HighestBidBase, r.LastSaleBase,
			r.Spread, r.SpreadPct,
			toNullableInt32(r.Sales72h), toNullableInt32(r.Sales30d),
			toNullableInt32(r.TotalSales), toNullableInt32(r.ListingCount),
			toNullableInt32(r.OfferCount), r.LastSaleAt,
			r.AveragePrice, r.Volatility, r.PricePremium,
			r.SnapshotID, r.CapturedAt, r.IngestedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByProduct retrieves all projection rows for a product identifier.
func (s *LatestSnapshotStore) GetByProduct(ctx context.Context, productID string) ([]*domain.MarketRecord, error) {
	query := `
		SELECT ` + latestSnapshotColumns + `
		FROM latest_snapshots FINAL
		WHERE product_id = ?
		ORDER BY provider, variant_id, size, currency, region, expedited, consigned
	`

	rows, err := s.conn.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots by product: %w", err)
	}
	defer rows.Close()

	return scanLatestSnapshots(rows)
}

// GetByProductSizeCurrency retrieves projection rows for one
// (product, size, currency) across all providers and tiers.
func (s *LatestSnapshotStore) GetByProductSizeCurrency(ctx context.Context, productID, size, currency string) ([]*domain.MarketRecord, error) {
	query := `
		SELECT ` + latestSnapshotColumns + `
		FROM latest_snapshots FINAL
		WHERE product_id = ? AND size = ? AND currency = ?
		ORDER BY provider, expedited, consigned
	`

	rows, err := s.conn.Query(ctx, query, productID, size, currency)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots by product/size/currency: %w", err)
	}
	defer rows.Close()

	return scanLatestSnapshots(rows)
}

// chRows is the subset of driver.Rows used by scan helpers.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanLatestSnapshots scans multiple rows into MarketRecords.
func scanLatestSnapshots(rows chRows) ([]*domain.MarketRecord, error) {
	var records []*domain.MarketRecord

	for rows.Next() {
		var (
			r        domain.MarketRecord
			provider string
			variant  string
			sales72h, sales30d, totalSales *int32
			listingCount, offerCount       *int32
			lastSaleAt *time.Time
		)

		err := rows.Scan(
			&provider, &r.ProductID, &variant, &r.Size, &r.Currency, &r.Region,
			&r.Expedited, &r.Consigned,
			&r.LowestAsk, &r.HighestBid, &r.LastSale,
			&r.LowestAskBase, &r.HighestBidBase, &r.LastSaleBase,
			&r.Spread, &r.SpreadPct,
			&sales72h, &sales30d, &totalSales, &listingCount, &offerCount, &lastSaleAt,
			&r.AveragePrice, &r.Volatility, &r.PricePremium,
			&r.SnapshotID, &r.CapturedAt, &r.IngestedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan latest snapshot row: %w", err)
		}

		r.Provider = domain.Provider(provider)
		if variant != "" {
			r.VariantID = &variant
		}
		r.Sales72h = fromNullableInt32(sales72h)
		r.Sales30d = fromNullableInt32(sales30d)
		r.TotalSales = fromNullableInt32(totalSales)
		r.ListingCount = fromNullableInt32(listingCount)
		r.OfferCount = fromNullableInt32(offerCount)
		r.LastSaleAt = lastSaleAt

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest snapshot rows: %w", err)
	}

	return records, nil
}

func toNullableInt32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

func fromNullableInt32(v *int32) *int {
	if v == nil {
		return nil
	}
	n := int(*v)
	return &n
}
