package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tableau-assistant/internal/models"
)

type captureStore struct {
	mu        sync.Mutex
	inserted  []*models.Exchange
	insertErr error
}

func (s *captureStore) Insert(ctx context.Context, e *models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, e)
	return s.insertErr
}

func (s *captureStore) ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error) {
	return nil, nil
}

func (s *captureStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *captureStore) Close() {}

func (s *captureStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

func TestRecorderPersistsQueuedExchanges(t *testing.T) {
	store := &captureStore{}
	recorder := NewRecorder(store, 2)
	recorder.Start()

	for i := 0; i < 5; i++ {
		recorder.Record(&models.Exchange{Question: fmt.Sprintf("q%d", i)})
	}
	recorder.Stop()

	if store.count() != 5 {
		t.Fatalf("expected 5 exchanges persisted after Stop, got %d", store.count())
	}
}

func TestRecorderDropsWhenQueueFull(t *testing.T) {
	store := &captureStore{}
	recorder := NewRecorder(store, 1)
	// Workers not started yet, so the queue fills up and the
	// overflow exchange is dropped rather than blocking.
	for i := 0; i < recordQueueSize+3; i++ {
		recorder.Record(&models.Exchange{Question: fmt.Sprintf("q%d", i)})
	}

	recorder.Start()
	recorder.Stop()

	if store.count() != recordQueueSize {
		t.Fatalf("expected %d exchanges persisted, got %d", recordQueueSize, store.count())
	}
}

func TestRecorderSurvivesStoreError(t *testing.T) {
	store := &captureStore{insertErr: errors.New("disk on fire")}
	recorder := NewRecorder(store, 1)
	recorder.Start()

	recorder.Record(&models.Exchange{Question: "q"})
	recorder.Record(&models.Exchange{Question: "q2"})
	recorder.Stop()

	// Failures are logged, not fatal; both inserts were still attempted.
	if store.count() != 2 {
		t.Fatalf("expected 2 insert attempts, got %d", store.count())
	}
}

func TestRecorderClampsWorkerCount(t *testing.T) {
	store := &captureStore{}
	recorder := NewRecorder(store, 0)
	recorder.Start()
	recorder.Record(&models.Exchange{Question: "q"})
	recorder.Stop()

	if store.count() != 1 {
		t.Fatalf("expected exchange persisted with clamped worker count, got %d", store.count())
	}
}
