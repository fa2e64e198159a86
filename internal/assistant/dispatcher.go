package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/gjson"

	"tableau-assistant/internal/models"
)

const (
	emptyQuestionMessage = "Please enter a question."
	thinkingMessage      = "Thinking..."
	busyMessage          = "Still working on the previous question..."
	noResponseMessage    = "no response"
)

// UI is the surface the dispatcher drives: the response area, the status
// line, and the send control's enabled state. The terminal front end and
// test fakes both implement it.
type UI interface {
	SetSending(sending bool)
	SetStatus(status string)
	RenderResponse(text string)
}

// Dispatcher sends one question at a time to the backend. The sending state
// guards against overlapping sends; every exit path returns the UI to idle.
type Dispatcher struct {
	backendURL string
	httpClient *http.Client
	session    *Session
	ui         UI
	log        *DebugLog

	mu      sync.Mutex
	sending bool
}

func NewDispatcher(backendURL string, session *Session, ui UI, dlog *DebugLog) *Dispatcher {
	return &Dispatcher{
		backendURL: strings.TrimRight(backendURL, "/"),
		// Transport defaults only; the question flow adds no timeout of
		// its own.
		httpClient: &http.Client{},
		session:    session,
		ui:         ui,
		log:        dlog,
	}
}

// Ask reads the selected worksheet, posts the question to the backend, and
// renders the answer or the failure. All failures end up in the response
// area; nothing propagates. Reports whether an answer was rendered.
func (d *Dispatcher) Ask(ctx context.Context, question, worksheet string) bool {
	if strings.TrimSpace(question) == "" {
		d.ui.RenderResponse(emptyQuestionMessage)
		return false
	}

	if !d.beginSend() {
		d.ui.SetStatus(busyMessage)
		d.log.Debugf("Send rejected: a question is already in flight")
		return false
	}
	defer func() {
		d.endSend()
		d.ui.SetSending(false)
	}()

	d.ui.SetSending(true)
	d.ui.SetStatus(thinkingMessage)

	data, err := d.session.WorksheetData(ctx, worksheet)
	if err != nil {
		d.fail(err)
		return false
	}
	if data == nil {
		d.log.Debugf("Sending without worksheet data")
	}

	payload, err := json.Marshal(models.ChatRequest{Message: question, Tableau: data})
	if err != nil {
		d.fail(err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.backendURL+"/chat", bytes.NewReader(payload))
	if err != nil {
		d.fail(err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		d.fail(err)
		return false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		d.fail(err)
		return false
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := errorDetail(body)
		d.ui.RenderResponse(fmt.Sprintf("Error %d: %s", resp.StatusCode, detail))
		log.Printf("Backend error %d: %s", resp.StatusCode, detail)
		d.log.Debugf("Backend error %d: %s", resp.StatusCode, detail)
		return false
	}

	var chat models.ChatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		d.fail(err)
		return false
	}

	if chat.Response == "" {
		d.ui.RenderResponse(noResponseMessage)
		return true
	}
	d.ui.RenderResponse(chat.Response)
	return true
}

func (d *Dispatcher) beginSend() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sending {
		return false
	}
	d.sending = true
	return true
}

func (d *Dispatcher) endSend() {
	d.mu.Lock()
	d.sending = false
	d.mu.Unlock()
}

func (d *Dispatcher) fail(err error) {
	d.ui.RenderResponse("Error: " + err.Error())
	log.Printf("Send failed: %v", err)
	d.log.Debugf("Send failed: %v", err)
}

// errorDetail pulls a human-readable message out of an error body: first the
// common JSON shapes, then the raw text when the body is not JSON at all.
func errorDetail(body []byte) string {
	for _, path := range []string{"error.message", "detail", "error"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return "no error detail"
	}
	return text
}
