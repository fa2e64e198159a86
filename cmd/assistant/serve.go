package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"tableau-assistant/internal/config"
	"tableau-assistant/internal/database"
	"tableau-assistant/internal/handlers"
	"tableau-assistant/internal/repository"
	"tableau-assistant/internal/router"
	"tableau-assistant/internal/services"
	"tableau-assistant/internal/websocket"
	"tableau-assistant/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	log.Println("🚀 Starting Tableau Assistant backend...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log.Println("✓ Configuration loaded")

	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}

	// Exchange store: PostgreSQL when configured, bounded in-memory otherwise.
	var store repository.ExchangeStore
	if cfg.Store.DatabaseURL != "" {
		pool, err := database.NewPostgresPool(cfg.Store.DatabaseURL)
		if err != nil {
			log.Fatalf("✗ PostgreSQL connection failed: %v", err)
		}
		if err := database.RunMigrations(pool); err != nil {
			log.Fatalf("✗ Database migration failed: %v", err)
		}
		store = repository.NewExchangeRepo(pool)
		log.Println("✓ PostgreSQL connected, migrations applied")
	} else {
		store = repository.NewMemoryExchangeStore()
		log.Println("✓ In-memory exchange store (DATABASE_URL not set)")
	}
	defer store.Close()

	var redisClient *redis.Client
	if cfg.Store.RedisURL != "" {
		redisClient, err = database.NewRedisClient(cfg.Store.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		log.Println("✓ Redis connected")
	}

	geminiService, err := services.NewGeminiService(
		cfg.Gemini.APIKey,
		cfg.Gemini.Model,
		float32(cfg.Gemini.Temperature),
		cfg.Gemini.ConcurrentRequests,
	)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (%s)", cfg.Gemini.Model)

	recorder := worker.NewRecorder(store, cfg.Store.RecorderWorkers)
	recorder.Start()

	retention := services.NewRetentionSweeper(store, cfg.Store.RetentionDays)
	retention.Start()

	wsHub := websocket.NewHub(redisClient)
	log.Println("✓ WebSocket hub started")

	chatHandler := handlers.NewChatHandler(geminiService, recorder, wsHub, cfg.Gemini.Model)
	historyHandler := handlers.NewHistoryHandler(store)

	r := router.New(chatHandler, historyHandler, wsHub, cfg.Server.AllowedOrigins, cfg.Server.ChatRateLimit)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdownDone := make(chan struct{})
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		gracefulStop(server, 30*time.Second, retention, wsHub, recorder)
		close(shutdownDone)
	}()

	log.Printf("✓ Tableau Assistant backend ready on http://localhost:%s", cfg.Server.Port)
	log.Printf("  Chat: POST http://localhost:%s/chat", cfg.Server.Port)
	log.Printf("  WS:   ws://localhost:%s/ws", cfg.Server.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}

	// ListenAndServe returns as soon as Shutdown begins; wait for the drain
	// and the worker stops to finish.
	<-shutdownDone
	log.Println("Shutdown complete")
	return nil
}

// gracefulStop drains in-flight requests, then stops the background workers.
// Handlers queue exchanges as they complete, so the recorder must outlive
// them; it is stopped only after Shutdown has returned.
func gracefulStop(server *http.Server, timeout time.Duration, retention *services.RetentionSweeper, hub *websocket.Hub, recorder *worker.Recorder) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}

	retention.Stop()
	hub.Stop()
	recorder.Stop()
}
