// Package normalization converts parsed provider payloads into canonical
// market records and volume updates. Mappers are pure with respect to
// storage: they take a parsed response plus capture metadata and return
// domain values, leaving persistence to the ingestion layer. A malformed
// entry is dropped with a warning; it never aborts the rest of the payload.
package normalization

import (
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/money"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/provider/resale"
)

// MapResaleMarket maps a resale market response to canonical records.
//
// Every variant yields one standard-tier record even when all amounts are
// empty: an observed absence of pricing is itself a fact. Variants with
// expedited-tier amounts yield a second record that shares the identity
// except for the expedited flag and carries only the expedited ask and bid.
// Volume and risk metrics stay on the standard record only, because the
// marketplace does not break them out per tier.
func MapResaleMarket(resp *resale.MarketResponse, snapshotID string, capturedAt time.Time, logger *logrus.Logger) []*domain.MarketRecord {
	region := resp.Region
	if region == "" {
		region = domain.RegionGlobal
	}

	records := make([]*domain.MarketRecord, 0, len(resp.Variants))
	for i := range resp.Variants {
		v := &resp.Variants[i]
		if v.SizeKey == "" {
			observability.RecordParseFailure(string(domain.ProviderResale))
			logger.WithFields(logrus.Fields{
				"product_id": resp.ProductID,
				"variant_id": v.VariantID,
			}).Warn("resale variant has no size key, dropping entry")
			continue
		}

		standard := &domain.MarketRecord{
			Provider:  domain.ProviderResale,
			ProductID: resp.ProductID,
			VariantID: optionalString(v.VariantID),
			Size:      v.SizeKey,
			Currency:  resp.Currency,
			Region:    region,

			LowestAsk:  parseResaleAmount(v.LowestAskAmount, resp.ProductID, v.SizeKey, logger),
			HighestBid: parseResaleAmount(v.HighestBidAmount, resp.ProductID, v.SizeKey, logger),
			LastSale:   parseResaleAmount(v.LastSaleAmount, resp.ProductID, v.SizeKey, logger),

			Sales72h:     v.SalesLast72Hours,
			Sales30d:     v.SalesLast30Days,
			TotalSales:   v.TotalSold,
			AveragePrice: v.AveragePrice,
			Volatility:   v.Volatility,
			PricePremium: v.PricePremium,

			SnapshotID: optionalString(snapshotID),
			CapturedAt: capturedAt,
		}
		records = append(records, standard)

		if !v.HasExpedited() {
			continue
		}
		expedited := &domain.MarketRecord{
			Provider:  domain.ProviderResale,
			ProductID: resp.ProductID,
			VariantID: optionalString(v.VariantID),
			Size:      v.SizeKey,
			Currency:  resp.Currency,
			Region:    region,
			Expedited: true,

			LowestAsk:  parseResaleAmount(v.ExpeditedLowestAskAmount, resp.ProductID, v.SizeKey, logger),
			HighestBid: parseResaleAmount(v.ExpeditedHighestBidAmount, resp.ProductID, v.SizeKey, logger),

			SnapshotID: optionalString(snapshotID),
			CapturedAt: capturedAt,
		}
		records = append(records, expedited)
	}

	return records
}

func parseResaleAmount(raw, productID, size string, logger *logrus.Logger) *float64 {
	v := money.ParseMajor(raw)
	if v == nil && raw != "" {
		observability.RecordParseFailure(string(domain.ProviderResale))
		logger.WithFields(logrus.Fields{
			"product_id": productID,
			"size":       size,
			"amount":     raw,
		}).Warn("unparseable resale amount, treating as missing")
		return nil
	}
	if money.Suspect(v) {
		observability.RecordSuspectAmount(string(domain.ProviderResale))
		logger.WithFields(logrus.Fields{
			"product_id": productID,
			"size":       size,
			"amount":     *v,
		}).Warn("resale amount above plausibility ceiling")
	}
	return v
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
