package api

import (
	"net/http"
	"time"

	"inkwell/internal/event"
	"inkwell/internal/logging"
)

// EventsHandler streams file-change notifications to websocket clients.
type EventsHandler struct {
	Bus            *event.Bus[event.FileChange]
	Logger         *logging.Logger
	AuthToken      string
	AllowedOrigins []string
}

type fileChangePayload struct {
	Type      string    `json:"type"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !requireWSToken(w, r, h.AuthToken, h.Logger) {
		return
	}
	if h.Bus == nil {
		writeWSError(w, r, nil, h.Logger, wsError{
			Status:  http.StatusServiceUnavailable,
			Message: "event stream unavailable",
		})
		return
	}

	output, cancel := h.Bus.SubscribeTypes(event.TypeFileChange)
	defer cancel()

	conn, err := upgradeWebSocket(w, r, h.AllowedOrigins)
	if err != nil {
		logWSError(h.Logger, r, wsError{
			Status:  http.StatusBadRequest,
			Message: "websocket upgrade failed",
			Err:     err,
		})
		return
	}

	serveWSStream(w, r, wsStreamConfig[event.FileChange]{
		Conn:           conn,
		AllowedOrigins: h.AllowedOrigins,
		Output:         output,
		Logger:         h.Logger,
		BuildPayload:   buildFileChangePayload,
	})
}

func buildFileChangePayload(change event.FileChange) (any, bool) {
	if change.Path == "" {
		return nil, false
	}
	payload := fileChangePayload{
		Type:      change.Type(),
		Path:      change.Path,
		Kind:      change.Kind,
		Timestamp: change.Timestamp(),
	}
	if payload.Kind == "" {
		payload.Kind = event.KindChange
	}
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now().UTC()
	}
	return payload, true
}
