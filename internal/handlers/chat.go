package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"tableau-assistant/internal/models"
)

// Narrow views of the collaborators the handler needs. The recorder and
// publisher may be nil; recording and fanout are then skipped.

type analyst interface {
	Answer(ctx context.Context, question string, data *models.WorksheetData) (string, error)
}

type exchangeRecorder interface {
	Record(e *models.Exchange)
}

type activityPublisher interface {
	Publish(msg models.ActivityMessage)
}

type ChatHandler struct {
	analyst   analyst
	recorder  exchangeRecorder
	publisher activityPublisher
	modelName string
}

func NewChatHandler(analyst analyst, recorder exchangeRecorder, publisher activityPublisher, modelName string) *ChatHandler {
	return &ChatHandler{
		analyst:   analyst,
		recorder:  recorder,
		publisher: publisher,
		modelName: modelName,
	}
}

func (h *ChatHandler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Message is required", r))
		return
	}

	requestID := r.Header.Get("X-Request-ID")

	worksheet := ""
	if req.Tableau != nil {
		worksheet = req.Tableau.SheetName
		log.Printf("Received question: %q (worksheet %q, %d rows)", req.Message, worksheet, req.Tableau.RowCount())
	} else {
		log.Printf("Received question: %q (no Tableau data attached)", req.Message)
	}

	h.publish(models.ActivityMessage{
		Type: "question_received",
		Payload: models.QuestionReceived{
			RequestID: requestID,
			Worksheet: worksheet,
			RowCount:  req.Tableau.RowCount(),
		},
	})

	start := time.Now()

	answer, err := h.analyst.Answer(r.Context(), req.Message, req.Tableau)
	if err != nil {
		log.Printf("GEMINI/BACKEND ERROR: %v", err)
		h.publish(models.ActivityMessage{
			Type: "answer_failed",
			Payload: models.AnswerFailed{
				RequestID:    requestID,
				ErrorCode:    serviceErrorCode(err),
				ErrorMessage: err.Error(),
			},
		})
		handleServiceError(w, r, err)
		return
	}

	duration := time.Since(start).Milliseconds()

	h.record(&models.Exchange{
		RequestID:   requestID,
		Question:    req.Message,
		Worksheet:   worksheet,
		RowCount:    req.Tableau.RowCount(),
		ColumnCount: req.Tableau.ColumnCount(),
		Answer:      answer,
		Model:       h.modelName,
		DurationMS:  duration,
	})

	h.publish(models.ActivityMessage{
		Type: "answer_sent",
		Payload: models.AnswerSent{
			RequestID:  requestID,
			DurationMS: duration,
		},
	})

	writeJSON(w, http.StatusOK, models.ChatResponse{Response: answer})
}

func (h *ChatHandler) record(e *models.Exchange) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(e)
}

func (h *ChatHandler) publish(msg models.ActivityMessage) {
	if h.publisher == nil {
		return
	}
	h.publisher.Publish(msg)
}
