package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tableau-assistant/internal/models"
)

type purgeRecordingStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
	removed int64
	err     error
}

func (s *purgeRecordingStore) Insert(ctx context.Context, e *models.Exchange) error { return nil }

func (s *purgeRecordingStore) ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error) {
	return nil, nil
}

func (s *purgeRecordingStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.removed, s.err
}

func (s *purgeRecordingStore) Close() {}

func (s *purgeRecordingStore) seen() []time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Time(nil), s.cutoffs...)
}

func TestRetentionCutoff(t *testing.T) {
	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)

	if got := retentionCutoff(now, 30); !got.Equal(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected cutoff 30 days back, got %s", got)
	}

	if got := retentionCutoff(now, 1); !got.Equal(time.Date(2026, 3, 30, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected cutoff 1 day back, got %s", got)
	}
}

func TestRetentionSweepUsesCutoff(t *testing.T) {
	store := &purgeRecordingStore{removed: 3}
	sweeper := NewRetentionSweeper(store, 7)

	now := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	sweeper.sweep(context.Background(), now)

	cutoffs := store.seen()
	if len(cutoffs) != 1 {
		t.Fatalf("expected one purge, got %d", len(cutoffs))
	}
	if !cutoffs[0].Equal(retentionCutoff(now, 7)) {
		t.Fatalf("expected cutoff %s, got %s", retentionCutoff(now, 7), cutoffs[0])
	}
}

func TestRetentionSweepSurvivesStoreError(t *testing.T) {
	store := &purgeRecordingStore{err: errors.New("connection lost")}
	sweeper := NewRetentionSweeper(store, 7)

	// Must log and carry on, not panic.
	sweeper.sweep(context.Background(), time.Now().UTC())

	if len(store.seen()) != 1 {
		t.Fatalf("expected the purge to have been attempted")
	}
}

func TestRetentionSweeperDisabled(t *testing.T) {
	store := &purgeRecordingStore{}

	sweeper := NewRetentionSweeper(store, 0)
	sweeper.Start()
	sweeper.Stop()

	if len(store.seen()) != 0 {
		t.Fatalf("expected no purges with retention disabled")
	}

	// Stop is idempotent.
	sweeper.Stop()
}
