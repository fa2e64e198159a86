package handlers

import (
	"log"
	"net/http"
	"strconv"

	"tableau-assistant/internal/models"
	"tableau-assistant/internal/repository"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type HistoryHandler struct {
	store repository.ExchangeStore
}

func NewHistoryHandler(store repository.ExchangeStore) *HistoryHandler {
	return &HistoryHandler{store: store}
}

// ListRecent returns the most recent exchanges, newest first.
func (h *HistoryHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "limit must be a positive integer", r))
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	exchanges, err := h.store.ListRecent(r.Context(), limit)
	if err != nil {
		log.Printf("failed to list exchanges: %v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
		return
	}

	if exchanges == nil {
		exchanges = []*models.Exchange{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exchanges": exchanges,
		"count":     len(exchanges),
	})
}
