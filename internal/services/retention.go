package services

import (
	"context"
	"log"
	"time"

	"tableau-assistant/internal/repository"
)

const retentionSweepInterval = 1 * time.Hour

// RetentionSweeper periodically deletes chat exchanges older than the
// configured number of days. A non-positive day count disables it.
type RetentionSweeper struct {
	store    repository.ExchangeStore
	days     int
	stopChan chan struct{}
}

func NewRetentionSweeper(store repository.ExchangeStore, days int) *RetentionSweeper {
	return &RetentionSweeper{
		store:    store,
		days:     days,
		stopChan: make(chan struct{}),
	}
}

func (s *RetentionSweeper) Start() {
	if s.store == nil || s.days <= 0 {
		return
	}

	go s.loop()

	log.Printf("Retention sweeper started (keeping %d days of history)", s.days)
}

func (s *RetentionSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *RetentionSweeper) loop() {
	// Run on startup as well as by interval.
	s.sweep(context.Background(), time.Now().UTC())

	ticker := time.NewTicker(retentionSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep(context.Background(), time.Now().UTC())
		}
	}
}

func (s *RetentionSweeper) sweep(ctx context.Context, now time.Time) {
	cutoff := retentionCutoff(now, s.days)

	removed, err := s.store.PurgeOlderThan(ctx, cutoff)
	if err != nil {
		log.Printf("retention sweep: failed to purge old exchanges: %v", err)
		return
	}

	if removed > 0 {
		log.Printf("Retention sweep removed %d exchanges older than %s", removed, cutoff.Format(time.RFC3339))
	}
}

func retentionCutoff(now time.Time, days int) time.Time {
	return now.UTC().AddDate(0, 0, -days)
}
