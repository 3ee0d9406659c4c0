package normalization

import (
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/money"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/provider/peer"
)

// AvailabilityOptions controls which peer variants the mapper keeps.
type AvailabilityOptions struct {
	// IncludeConsigned admits consigned-tier variants. Off by default
	// because consigned listings price differently and pollute the
	// standard series when mixed in.
	IncludeConsigned bool
}

// MapPeerAvailability maps a pricing-insights response to canonical records.
//
// Only new product in good packaging is canonical: any other condition
// combination is skipped outright, not treated as a parse failure. Amounts
// arrive as cent strings and convert to major units exactly. Volume fields
// stay nil here; the recent-sales pass backfills them. When the variant has
// no last-sold amount the mapper falls back to the marketplace's global
// price indicator so downstream consumers still get a reference sale price.
func MapPeerAvailability(resp *peer.PricingInsightsResponse, opts AvailabilityOptions, snapshotID string, capturedAt time.Time, logger *logrus.Logger) []*domain.MarketRecord {
	region := resp.Region
	if region == "" {
		region = domain.RegionGlobal
	}

	records := make([]*domain.MarketRecord, 0, len(resp.Variants))
	for i := range resp.Variants {
		v := &resp.Variants[i]
		if v.ProductCondition != peer.ConditionNew || v.PackagingCondition != peer.PackagingGood {
			continue
		}
		if v.Consigned && !opts.IncludeConsigned {
			continue
		}

		size := peer.SizeLabel(v.Size)
		if size == "" {
			observability.RecordParseFailure(string(domain.ProviderPeer))
			logger.WithField("catalog_id", resp.CatalogID).
				Warn("peer variant has no size, dropping entry")
			continue
		}

		rec := &domain.MarketRecord{
			Provider:  domain.ProviderPeer,
			ProductID: resp.CatalogID,
			Size:      size,
			Currency:  resp.Currency,
			Region:    region,
			Consigned: v.Consigned,

			SnapshotID: optionalString(snapshotID),
			CapturedAt: capturedAt,
		}

		if a := v.Availability; a != nil {
			rec.LowestAsk = parsePeerAmount(a.LowestListingPriceCents, resp.CatalogID, size, logger)
			rec.HighestBid = parsePeerAmount(a.HighestOfferPriceCents, resp.CatalogID, size, logger)
			rec.LastSale = parsePeerAmount(a.LastSoldPriceCents, resp.CatalogID, size, logger)
			if rec.LastSale == nil {
				rec.LastSale = parsePeerAmount(a.GlobalIndicatorPriceCents, resp.CatalogID, size, logger)
			}
			rec.ListingCount = a.NumberOfListings
			rec.OfferCount = a.NumberOfOffers
		}

		records = append(records, rec)
	}

	return records
}

func parsePeerAmount(raw, catalogID, size string, logger *logrus.Logger) *float64 {
	v := money.ParseMinor(raw)
	if v == nil && raw != "" {
		observability.RecordParseFailure(string(domain.ProviderPeer))
		logger.WithFields(logrus.Fields{
			"catalog_id": catalogID,
			"size":       size,
			"amount":     raw,
		}).Warn("unparseable peer amount, treating as missing")
		return nil
	}
	if money.Suspect(v) {
		observability.RecordSuspectAmount(string(domain.ProviderPeer))
		logger.WithFields(logrus.Fields{
			"catalog_id": catalogID,
			"size":       size,
			"amount":     *v,
		}).Warn("peer amount above plausibility ceiling")
	}
	return v
}
