package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"tableau-assistant/internal/models"
)

const memoryStoreCapacity = 500

// MemoryExchangeStore keeps the most recent exchanges in a bounded
// in-memory ring. It backs deployments that run without a database.
type MemoryExchangeStore struct {
	mu       sync.RWMutex
	items    []*models.Exchange
	capacity int
}

func NewMemoryExchangeStore() *MemoryExchangeStore {
	return &MemoryExchangeStore{capacity: memoryStoreCapacity}
}

func (s *MemoryExchangeStore) Insert(ctx context.Context, e *models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	s.items = append(s.items, e)
	if len(s.items) > s.capacity {
		s.items = s.items[len(s.items)-s.capacity:]
	}
	return nil
}

// ListRecent returns up to limit exchanges, newest first. A non-positive
// limit returns everything retained.
func (s *MemoryExchangeStore) ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.items) {
		limit = len(s.items)
	}

	out := make([]*models.Exchange, 0, limit)
	for i := len(s.items) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.items[i])
	}
	return out, nil
}

func (s *MemoryExchangeStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []*models.Exchange
	var removed int64
	for _, e := range s.items {
		if e.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.items = kept
	return removed, nil
}

func (s *MemoryExchangeStore) Close() {}

var _ ExchangeStore = (*MemoryExchangeStore)(nil)
