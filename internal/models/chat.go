package models

// WorksheetData is the tabular snapshot of one worksheet, captured
// immediately before a send and discarded after the request completes.
// Cells carry the worksheet's formatted display string when the host
// provides one, otherwise the raw value, so numbers stay numbers.
type WorksheetData struct {
	SheetName string   `json:"sheetName"`
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
}

func (w *WorksheetData) RowCount() int {
	if w == nil {
		return 0
	}
	return len(w.Rows)
}

func (w *WorksheetData) ColumnCount() int {
	if w == nil {
		return 0
	}
	return len(w.Columns)
}

// ChatRequest is the payload sent to the chat endpoint. Tableau is nil when
// no worksheet data could be read; the backend then answers generally.
type ChatRequest struct {
	Message string         `json:"message"`
	Tableau *WorksheetData `json:"tableau"`
}

// ChatResponse is the reply from the assistant.
type ChatResponse struct {
	Response string `json:"response"`
}

// API Error response
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
