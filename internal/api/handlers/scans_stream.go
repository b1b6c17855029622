package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	apierrors "github.com/narvanalabs/zapper/internal/api/errors"
	"github.com/narvanalabs/zapper/internal/models"
)

// StreamEvent is one message of a streamed scan.
type StreamEvent struct {
	Type   string      `json:"type"`
	Line   string      `json:"line,omitempty"`
	Report interface{} `json:"report,omitempty"`
}

// Event types.
const (
	EventLine   = "line"
	EventResult = "result"
	EventError  = "error"
)

// sseSink writes each progress line as a Server-Sent Event.
type sseSink struct {
	mu sync.Mutex
	w  http.ResponseWriter
}

func (s *sseSink) Line(line string) {
	s.send(EventLine, StreamEvent{Type: EventLine, Line: line})
}

func (s *sseSink) send(event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "event: %s\n", event)
	fmt.Fprintf(s.w, "data: %s\n\n", payload)
	if flusher, ok := s.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Stream handles POST /v1/scans/stream. Progress lines are streamed as
// "line" events and the report as a final "result" event.
func (h *ScanHandler) Stream(w http.ResponseWriter, r *http.Request) {
	cfg, apiErr := h.decodeForm(r.Body)
	if apiErr != nil {
		apierrors.WriteError(w, apiErr)
		return
	}

	ctx, ok := h.begin(w, r)
	if !ok {
		return
	}
	defer h.end()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	sink := &sseSink{w: w}
	report := h.runner.Run(ctx, cfg, sink)
	sink.send(EventResult, StreamEvent{Type: EventResult, Report: report})

	h.logger.Info("scan stream finished", "run_id", report.RunID, "succeeded", report.Succeeded)
}

// wsSink writes each progress line as a WebSocket text message.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
	err  error
}

func (s *wsSink) Line(line string) {
	s.send(StreamEvent{Type: EventLine, Line: line})
}

func (s *wsSink) send(ev StreamEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	s.err = s.conn.WriteJSON(ev)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// WebSocket handles GET /v1/scans/ws. The client sends one JSON step form;
// the server answers with line events, a result event, then closes.
func (h *ScanHandler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	sink := &wsSink{conn: conn}
	closeWith := func(code int, text string) {
		conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
	}

	conn.SetReadLimit(maxFormBytes)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	var form models.StepForm
	if err := conn.ReadJSON(&form); err != nil {
		sink.send(StreamEvent{Type: EventError, Line: fmt.Sprintf("invalid step form: %v", err)})
		closeWith(websocket.CloseUnsupportedData, "invalid step form")
		return
	}

	cfg, apiErr := h.configFromForm(form)
	if apiErr != nil {
		sink.send(StreamEvent{Type: EventError, Line: apiErr.Message, Report: apiErr})
		closeWith(websocket.ClosePolicyViolation, "invalid step form")
		return
	}

	ctx, ok := h.begin(noHeaderWriter{w.Header()}, r)
	if !ok {
		closeWith(websocket.CloseTryAgainLater, "server is shutting down")
		return
	}
	defer h.end()

	report := h.runner.Run(ctx, cfg, sink)
	sink.send(StreamEvent{Type: EventResult, Report: report})
	closeWith(websocket.CloseNormalClosure, "")
}

// noHeaderWriter lets begin run after the upgrade, when the response can
// no longer be written.
type noHeaderWriter struct{ h http.Header }

func (n noHeaderWriter) Header() http.Header         { return n.h }
func (n noHeaderWriter) Write(b []byte) (int, error) { return len(b), nil }
func (n noHeaderWriter) WriteHeader(int)             {}
