package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/normalization"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/provider/peer"
	"solemarket-pipeline/internal/snapshot"
	"solemarket-pipeline/internal/storage"
)

// PeerSyncer runs the peer provider's two-pass ingestion. Pass one maps the
// pricing-insights payload into canonical records with null volume. Pass two
// fetches recent sales and backfills the volume fields onto the records pass
// one wrote. Pass two failing demotes the run to partial success; it never
// undoes pass one.
type PeerSyncer struct {
	availability PeerAvailabilityFetcher
	sales        PeerRecentSalesFetcher
	recorder     *snapshot.Recorder
	records      storage.MarketRecordStore
	opts         normalization.AvailabilityOptions
	logger       *logrus.Logger
	now          func() time.Time
}

func NewPeerSyncer(availability PeerAvailabilityFetcher, sales PeerRecentSalesFetcher, recorder *snapshot.Recorder, records storage.MarketRecordStore, opts normalization.AvailabilityOptions, logger *logrus.Logger) *PeerSyncer {
	if logger == nil {
		logger = logrus.New()
	}
	return &PeerSyncer{
		availability: availability,
		sales:        sales,
		recorder:     recorder,
		records:      records,
		opts:         opts,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Sync ingests the given catalog items. The error is non-nil only when the
// context is done; everything else is reported through the result.
func (s *PeerSyncer) Sync(ctx context.Context, catalogIDs []string) (*PeerSyncResult, error) {
	start := s.now()
	result := &PeerSyncResult{}

	for _, catalogID := range catalogIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Availability.Attempted++

		written, err := s.syncAvailability(ctx, catalogID)
		if err != nil {
			result.Availability.Failed++
			s.logger.WithError(err).WithField("catalog_id", catalogID).
				Error("peer availability sync failed for catalog item")
			continue
		}
		result.Availability.Succeeded++
		result.Availability.Records += written

		// The backfill only targets records that exist, so it runs per
		// item after its availability pass succeeds.
		result.VolumeBackfill.Attempted++
		applied, skipped, err := s.backfillVolume(ctx, catalogID)
		if err != nil {
			result.VolumeBackfill.Failed++
			s.logger.WithError(err).WithField("catalog_id", catalogID).
				Warn("volume backfill failed, availability records kept")
			continue
		}
		result.VolumeBackfill.Succeeded++
		result.VolumeBackfill.Records += applied
		result.VolumeBackfill.Skipped += skipped
	}

	observability.RecordSyncRun(string(domain.ProviderPeer), result.Availability.Outcome(), s.now().Sub(start).Seconds())
	s.logger.WithFields(logrus.Fields{
		"attempted":       result.Availability.Attempted,
		"failed":          result.Availability.Failed,
		"records":         result.Availability.Records,
		"backfill_failed": result.VolumeBackfill.Failed,
		"backfill_skips":  result.VolumeBackfill.Skipped,
		"outcome":         result.Availability.Outcome(),
	}).Info("peer sync finished")

	return result, nil
}

func (s *PeerSyncer) syncAvailability(ctx context.Context, catalogID string) (int, error) {
	body, err := s.availability.FetchPricingInsights(ctx, catalogID)
	if err != nil {
		return 0, fmt.Errorf("fetch pricing insights: %w", err)
	}
	capturedAt := s.now()

	snapshotID := s.recorder.Record(ctx, domain.EndpointPeerAvailability,
		map[string]string{"catalog_id": catalogID}, body)

	var resp peer.PricingInsightsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		observability.RecordParseFailure(string(domain.ProviderPeer))
		return 0, fmt.Errorf("decode pricing insights: %w", err)
	}

	records := normalization.MapPeerAvailability(&resp, s.opts, snapshotID, capturedAt, s.logger)
	if len(records) == 0 {
		return 0, nil
	}
	if err := s.records.Upsert(ctx, records); err != nil {
		return 0, fmt.Errorf("upsert records: %w", err)
	}

	observability.RecordUpserts(string(domain.ProviderPeer), len(records))
	return len(records), nil
}

func (s *PeerSyncer) backfillVolume(ctx context.Context, catalogID string) (applied, skipped int, err error) {
	body, err := s.sales.FetchRecentSales(ctx, catalogID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch recent sales: %w", err)
	}

	s.recorder.Record(ctx, domain.EndpointPeerRecentSales,
		map[string]string{"catalog_id": catalogID}, body)

	var resp peer.RecentSalesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		observability.RecordParseFailure(string(domain.ProviderPeer))
		return 0, 0, fmt.Errorf("decode recent sales: %w", err)
	}

	for _, update := range normalization.BuildPeerVolumeUpdates(&resp, s.now()) {
		switch err := s.records.UpdateVolume(ctx, update); {
		case err == nil:
			applied++
		case errors.Is(err, storage.ErrNotFound):
			// Sales for a tier the availability pass filtered out, or a
			// size the catalog no longer lists. Expected, not an error.
			skipped++
			observability.RecordVolumeBackfillSkip()
			s.logger.WithFields(logrus.Fields{
				"catalog_id": catalogID,
				"size":       update.Size,
				"consigned":  update.Consigned,
			}).Debug("no record for volume update, skipping")
		default:
			return applied, skipped, fmt.Errorf("update volume: %w", err)
		}
	}

	return applied, skipped, nil
}
