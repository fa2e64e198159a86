package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tableau-assistant/internal/handlers"
	"tableau-assistant/internal/middleware"
	"tableau-assistant/internal/websocket"
)

func New(
	chatHandler *handlers.ChatHandler,
	historyHandler *handlers.HistoryHandler,
	wsHub *websocket.Hub,
	allowedOrigins []string,
	chatRateLimit int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(allowedOrigins))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Chat endpoint (rate limited per IP)
	r.Group(func(r chi.Router) {
		if chatRateLimit > 0 {
			chatLimiter := middleware.NewRateLimiter(chatRateLimit, time.Minute)
			r.Use(chatLimiter.Middleware)
		}
		r.Post("/chat", chatHandler.AskQuestion)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/history", historyHandler.ListRecent)
	})

	// WebSocket activity stream
	r.Get("/ws", wsHub.HandleWebSocket)

	return r
}
