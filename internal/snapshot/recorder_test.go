package snapshot

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"solemarket-pipeline/internal/domain"
	"solemarket-pipeline/internal/storage/memory"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type failingStore struct{}

func (failingStore) Insert(context.Context, *domain.RawSnapshot) error {
	return errors.New("disk full")
}
func (failingStore) GetByID(context.Context, string) (*domain.RawSnapshot, error) {
	return nil, errors.New("disk full")
}
func (failingStore) GetByEndpoint(context.Context, string, int) ([]*domain.RawSnapshot, error) {
	return nil, errors.New("disk full")
}

func TestRecord_PersistsSnapshot(t *testing.T) {
	store := memory.NewRawSnapshotStore()
	rec := NewRecorder(store, testLogger())
	ctx := context.Background()

	body := []byte(`{"productId":"p1"}`)
	id := rec.Record(ctx, domain.EndpointResaleMarket, map[string]string{"product_id": "p1"}, body)
	if id == "" {
		t.Fatal("Record should return a snapshot id on success")
	}

	snap, err := store.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if snap.Endpoint != domain.EndpointResaleMarket {
		t.Errorf("Endpoint mismatch: got %s", snap.Endpoint)
	}
	if string(snap.Body) != string(body) {
		t.Error("body should be stored verbatim")
	}
	if snap.Digest == "" {
		t.Error("digest should be computed")
	}
	if snap.CapturedAt.IsZero() {
		t.Error("CapturedAt should be stamped")
	}
}

func TestRecord_FailureReturnsEmptyID(t *testing.T) {
	rec := NewRecorder(failingStore{}, testLogger())

	id := rec.Record(context.Background(), domain.EndpointResaleMarket, nil, []byte(`{}`))
	if id != "" {
		t.Errorf("failed write should return an empty id, got %q", id)
	}
}

func TestRecord_DistinctIDs(t *testing.T) {
	store := memory.NewRawSnapshotStore()
	rec := NewRecorder(store, testLogger())
	ctx := context.Background()

	a := rec.Record(ctx, domain.EndpointResaleMarket, nil, []byte(`{}`))
	b := rec.Record(ctx, domain.EndpointResaleMarket, nil, []byte(`{}`))
	if a == b {
		t.Error("identical payloads still get distinct snapshot ids")
	}
}
