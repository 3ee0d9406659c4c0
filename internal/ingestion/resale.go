package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/normalization"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/provider/resale"
	"solemarket-pipeline/internal/snapshot"
	"solemarket-pipeline/internal/storage"
)

// ResaleSyncer runs the resale provider's single-pass ingestion: fetch the
// market payload per product, record the raw snapshot, normalize, upsert.
type ResaleSyncer struct {
	fetcher  ResaleMarketFetcher
	recorder *snapshot.Recorder
	records  storage.MarketRecordStore
	logger   *logrus.Logger
	now      func() time.Time
}

func NewResaleSyncer(fetcher ResaleMarketFetcher, recorder *snapshot.Recorder, records storage.MarketRecordStore, logger *logrus.Logger) *ResaleSyncer {
	if logger == nil {
		logger = logrus.New()
	}
	return &ResaleSyncer{
		fetcher:  fetcher,
		recorder: recorder,
		records:  records,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Sync ingests the given products. One product failing does not stop the
// rest; the returned StageResult carries the per-unit tally. The error is
// non-nil only when the context is done.
func (s *ResaleSyncer) Sync(ctx context.Context, productIDs []string) (*StageResult, error) {
	start := s.now()
	result := &StageResult{}

	for _, productID := range productIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Attempted++

		written, err := s.syncProduct(ctx, productID)
		if err != nil {
			result.Failed++
			s.logger.WithError(err).WithField("product_id", productID).
				Error("resale sync failed for product")
			continue
		}
		result.Succeeded++
		result.Records += written
	}

	observability.RecordSyncRun(string(domain.ProviderResale), result.Outcome(), s.now().Sub(start).Seconds())
	s.logger.WithFields(logrus.Fields{
		"attempted": result.Attempted,
		"failed":    result.Failed,
		"records":   result.Records,
		"outcome":   result.Outcome(),
	}).Info("resale sync finished")

	return result, nil
}

func (s *ResaleSyncer) syncProduct(ctx context.Context, productID string) (int, error) {
	body, err := s.fetcher.FetchMarket(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("fetch market: %w", err)
	}
	capturedAt := s.now()

	snapshotID := s.recorder.Record(ctx, domain.EndpointResaleMarket,
		map[string]string{"product_id": productID}, body)

	var resp resale.MarketResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		observability.RecordParseFailure(string(domain.ProviderResale))
		return 0, fmt.Errorf("decode market response: %w", err)
	}

	records := normalization.MapResaleMarket(&resp, snapshotID, capturedAt, s.logger)
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.records.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}

	observability.RecordUpserts(string(domain.ProviderResale), len(records))
	return len(records), nil
}
