package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solemarket-pipeline/internal/domain"
)

func projectionRow(provider domain.Provider, productID, size string) *domain.MarketRecord {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.MarketRecord{
		Provider:   provider,
		ProductID:  productID,
		Size:       size,
		Currency:   "USD",
		Region:     domain.RegionGlobal,
		CapturedAt: now,
		IngestedAt: now,
	}
}

func TestLatestSnapshotStore_RoundTrip(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLatestSnapshotStore(conn)
	ctx := context.Background()

	r := projectionRow(domain.ProviderResale, "p1", "10")
	r.VariantID = ptr("v-10")
	r.LowestAsk = ptr(145.0)
	r.HighestBid = ptr(130.0)
	r.Spread = ptr(15.0)
	r.Sales72h = ptr(7)
	r.SnapshotID = ptr("snap-1")
	require.NoError(t, store.Replace(ctx, []*domain.MarketRecord{r}))

	rows, err := store.GetByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	got := rows[0]
	require.Equal(t, domain.ProviderResale, got.Provider)
	require.NotNil(t, got.VariantID)
	require.Equal(t, "v-10", *got.VariantID)
	require.NotNil(t, got.LowestAsk)
	require.Equal(t, 145.0, *got.LowestAsk)
	require.NotNil(t, got.Sales72h)
	require.Equal(t, 7, *got.Sales72h)
	require.NotNil(t, got.SnapshotID)
	require.Nil(t, got.LastSale, "absent amounts stay NULL")
}

func TestLatestSnapshotStore_ReplaceCollapsesByIdentity(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLatestSnapshotStore(conn)
	ctx := context.Background()

	first := projectionRow(domain.ProviderResale, "p1", "10")
	first.LowestAsk = ptr(140.0)
	require.NoError(t, store.Replace(ctx, []*domain.MarketRecord{first}))

	second := projectionRow(domain.ProviderResale, "p1", "10")
	second.LowestAsk = ptr(145.0)
	second.IngestedAt = first.IngestedAt.Add(time.Second)
	require.NoError(t, store.Replace(ctx, []*domain.MarketRecord{second}))

	rows, err := store.GetByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 1, "FINAL read should collapse generations")
	require.NotNil(t, rows[0].LowestAsk)
	require.Equal(t, 145.0, *rows[0].LowestAsk, "newer generation wins")
}

func TestLatestSnapshotStore_VariantsAreDistinctRows(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLatestSnapshotStore(conn)
	ctx := context.Background()

	// A provider re-keying a size's variant yields two identities that
	// differ only in variant id. Both must survive the FINAL collapse.
	old := projectionRow(domain.ProviderResale, "p1", "10")
	old.VariantID = ptr("v-old")
	old.LowestAsk = ptr(140.0)
	renewed := projectionRow(domain.ProviderResale, "p1", "10")
	renewed.VariantID = ptr("v-new")
	renewed.LowestAsk = ptr(145.0)
	renewed.IngestedAt = old.IngestedAt.Add(time.Second)
	require.NoError(t, store.Replace(ctx, []*domain.MarketRecord{old, renewed}))

	rows, err := store.GetByProduct(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, rows, 2, "distinct variant ids are distinct identities")

	variants := map[string]bool{}
	for _, r := range rows {
		require.NotNil(t, r.VariantID)
		variants[*r.VariantID] = true
	}
	require.True(t, variants["v-old"])
	require.True(t, variants["v-new"])
}

func TestLatestSnapshotStore_GetByProductSizeCurrency(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewLatestSnapshotStore(conn)
	ctx := context.Background()

	expedited := projectionRow(domain.ProviderResale, "p1", "10")
	expedited.Expedited = true
	rows := []*domain.MarketRecord{
		projectionRow(domain.ProviderResale, "p1", "10"),
		projectionRow(domain.ProviderPeer, "p1", "10"),
		expedited,
		projectionRow(domain.ProviderResale, "p1", "11"),
	}
	require.NoError(t, store.Replace(ctx, rows))

	got, err := store.GetByProductSizeCurrency(ctx, "p1", "10", "USD")
	require.NoError(t, err)
	require.Len(t, got, 3, "all providers and tiers for the size")
	for _, r := range got {
		require.Equal(t, "10", r.Size)
		require.Equal(t, "USD", r.Currency)
	}
}
