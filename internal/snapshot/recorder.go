package snapshot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/idhash"
	"solemarket-pipeline/internal/observability"
	"solemarket-pipeline/internal/storage"
)

// Recorder logs raw provider responses before any parsing happens.
// Recording is best effort: a failed write is logged and counted but
// never blocks ingestion, so Record returns an empty id on failure
// instead of an error.
type Recorder struct {
	store  storage.RawSnapshotStore
	logger *logrus.Logger
	now    func() time.Time
}

func NewRecorder(store storage.RawSnapshotStore, logger *logrus.Logger) *Recorder {
	if logger == nil {
		logger = logrus.New()
	}
	return &Recorder{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Record persists the verbatim response body for an endpoint and returns
// the snapshot id to stamp onto records derived from it.
func (r *Recorder) Record(ctx context.Context, endpoint string, params map[string]string, body json.RawMessage) string {
	snap := &domain.RawSnapshot{
		ID:         uuid.NewString(),
		Endpoint:   endpoint,
		Params:     params,
		Body:       body,
		Digest:     idhash.ComputeSnapshotDigest(endpoint, body),
		CapturedAt: r.now(),
	}

	if err := r.store.Insert(ctx, snap); err != nil {
		observability.RecordSnapshotLogFailure()
		r.logger.WithError(err).WithField("endpoint", endpoint).
			Warn("raw snapshot write failed, continuing without snapshot id")
		return ""
	}

	return snap.ID
}
