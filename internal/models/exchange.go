package models

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is one recorded question/answer round trip.
type Exchange struct {
	ID          uuid.UUID `json:"id"`
	RequestID   string    `json:"request_id"`
	Question    string    `json:"question"`
	Worksheet   string    `json:"worksheet"`
	RowCount    int       `json:"row_count"`
	ColumnCount int       `json:"column_count"`
	Answer      string    `json:"answer"`
	Model       string    `json:"model"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// WebSocket activity messages

type ActivityMessage struct {
	Type    string `json:"type"` // "question_received" | "answer_sent" | "answer_failed"
	Payload any    `json:"payload"`
}

type QuestionReceived struct {
	RequestID string `json:"request_id"`
	Worksheet string `json:"worksheet"`
	RowCount  int    `json:"row_count"`
}

type AnswerSent struct {
	RequestID  string `json:"request_id"`
	DurationMS int64  `json:"duration_ms"`
}

type AnswerFailed struct {
	RequestID    string `json:"request_id"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
