package main

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"tableau-assistant/internal/models"
	"tableau-assistant/internal/services"
	"tableau-assistant/internal/websocket"
	"tableau-assistant/internal/worker"
)

type recordingStore struct {
	mu       sync.Mutex
	inserted []*models.Exchange
}

func (s *recordingStore) Insert(ctx context.Context, e *models.Exchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserted = append(s.inserted, e)
	return nil
}

func (s *recordingStore) ListRecent(ctx context.Context, limit int) ([]*models.Exchange, error) {
	return nil, nil
}

func (s *recordingStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func (s *recordingStore) Close() {}

func (s *recordingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inserted)
}

// A handler that is still draining inside Shutdown must be able to queue its
// exchange: the recorder is stopped only after Shutdown returns, even though
// Serve unblocks the moment Shutdown begins.
func TestGracefulStopRecordsInFlightExchange(t *testing.T) {
	store := &recordingStore{}
	recorder := worker.NewRecorder(store, 1)
	recorder.Start()
	retention := services.NewRetentionSweeper(store, 0)
	retention.Start()
	hub := websocket.NewHub(nil)

	arrived := make(chan struct{})
	release := make(chan struct{})
	var panicMu sync.Mutex
	var handlerPanic any

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				panicMu.Lock()
				handlerPanic = p
				panicMu.Unlock()
			}
		}()
		close(arrived)
		<-release
		recorder.Record(&models.Exchange{Question: "still in flight"})
		w.WriteHeader(http.StatusOK)
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	server := &http.Server{Handler: mux}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()

	status := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/chat")
		if err != nil {
			status <- 0
			return
		}
		resp.Body.Close()
		status <- resp.StatusCode
	}()

	<-arrived

	stopped := make(chan struct{})
	go func() {
		gracefulStop(server, 5*time.Second, retention, hub, recorder)
		close(stopped)
	}()

	// Serve returns while the handler is still running.
	if err := <-serveErr; err != http.ErrServerClosed {
		t.Fatalf("expected ErrServerClosed from Serve, got %v", err)
	}
	close(release)

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for graceful stop to finish")
	}

	panicMu.Lock()
	p := handlerPanic
	panicMu.Unlock()
	if p != nil {
		t.Fatalf("in-flight handler panicked during graceful stop: %v", p)
	}
	if code := <-status; code != http.StatusOK {
		t.Errorf("expected draining request to complete with 200, got %d", code)
	}
	if store.count() != 1 {
		t.Errorf("expected in-flight exchange persisted, got %d", store.count())
	}
}
