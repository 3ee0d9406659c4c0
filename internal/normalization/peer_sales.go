package normalization

import (
	"sort"
	"time"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/money"
	"solemarket-pipeline/internal/provider/peer"
)

type salesGroup struct {
	size      string
	consigned bool
	events    []peer.SaleEvent
}

// BuildPeerVolumeUpdates aggregates individual sale events into one volume
// update per (size, consigned) group. Window counts are relative to now;
// the last-sale amount and timestamp come from the newest event in the
// group. Updates are ordered by size then consigned tier so repeated runs
// apply in a stable order.
func BuildPeerVolumeUpdates(resp *peer.RecentSalesResponse, now time.Time) []*domain.VolumeUpdate {
	groups := make(map[string]*salesGroup)
	var order []string
	for _, sale := range resp.Sales {
		size := peer.SizeLabel(sale.Size)
		if size == "" {
			continue
		}
		key := size + "|" + boolSuffix(sale.Consigned)
		g, ok := groups[key]
		if !ok {
			g = &salesGroup{size: size, consigned: sale.Consigned}
			groups[key] = g
			order = append(order, key)
		}
		g.events = append(g.events, sale)
	}
	sort.Strings(order)

	cutoff72h := now.Add(-72 * time.Hour)
	cutoff30d := now.AddDate(0, 0, -30)

	updates := make([]*domain.VolumeUpdate, 0, len(order))
	for _, key := range order {
		g := groups[key]
		sort.Slice(g.events, func(i, j int) bool {
			return g.events[i].PurchasedAt.After(g.events[j].PurchasedAt)
		})

		update := &domain.VolumeUpdate{
			Provider:  domain.ProviderPeer,
			ProductID: resp.CatalogID,
			Size:      g.size,
			Consigned: g.consigned,
		}
		for _, sale := range g.events {
			if sale.PurchasedAt.After(cutoff72h) {
				update.Sales72h++
			}
			if sale.PurchasedAt.After(cutoff30d) {
				update.Sales30d++
			}
		}

		newest := g.events[0]
		update.LastSale = money.ParseMinor(newest.AmountCents)
		if update.LastSale != nil {
			at := newest.PurchasedAt
			update.LastSaleAt = &at
		}

		updates = append(updates, update)
	}

	return updates
}

func boolSuffix(b bool) string {
	if b {
		return "consigned"
	}
	return "standard"
}
