package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"tableau-assistant/internal/models"
	"tableau-assistant/internal/repository"
)

const recordQueueSize = 64

// Recorder persists exchanges off the request path. Record never blocks:
// when the queue is full the exchange is dropped with a log line.
type Recorder struct {
	store       repository.ExchangeStore
	jobs        chan *models.Exchange
	workerCount int
	wg          sync.WaitGroup
}

func NewRecorder(store repository.ExchangeStore, workerCount int) *Recorder {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Recorder{
		store:       store,
		jobs:        make(chan *models.Exchange, recordQueueSize),
		workerCount: workerCount,
	}
}

func (r *Recorder) Start() {
	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	log.Printf("Started %d recorder goroutines", r.workerCount)
}

// Record queues an exchange for persistence without blocking the caller.
func (r *Recorder) Record(e *models.Exchange) {
	select {
	case r.jobs <- e:
	default:
		log.Printf("Recorder queue full, dropping exchange %s", e.RequestID)
	}
}

// Stop drains queued exchanges and waits for the workers to finish. No
// Record calls may follow it.
func (r *Recorder) Stop() {
	close(r.jobs)
	r.wg.Wait()
}

func (r *Recorder) worker(id int) {
	defer r.wg.Done()

	for e := range r.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.store.Insert(ctx, e); err != nil {
			log.Printf("Worker %d: failed to record exchange %s: %v", id, e.RequestID, err)
		}
		cancel()
	}

	log.Printf("Worker %d shutting down", id)
}
