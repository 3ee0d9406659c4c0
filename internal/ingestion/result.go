package ingestion

// StageResult summarizes one stage of a sync run. A unit is one product or
// catalog item; skips are expected conditions (no matching record for a
// backfill), not failures.
type StageResult struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
	Records   int // canonical records written by the stage
}

// Outcome classifies a stage for logging and metrics.
func (r StageResult) Outcome() string {
	switch {
	case r.Attempted == 0:
		return "empty"
	case r.Failed == 0:
		return "ok"
	case r.Succeeded == 0:
		return "failed"
	default:
		return "partial"
	}
}

// PeerSyncResult is the two-stage outcome of a peer sync run. A failed
// volume backfill leaves the availability records intact, so the run as a
// whole degrades to partial success rather than failing.
type PeerSyncResult struct {
	Availability   StageResult
	VolumeBackfill StageResult
}
