package api

import (
	"net/http"

	"inkwell/internal/event"
	"inkwell/internal/logging"
)

// EventsSSEHandler streams file-change notifications as server-sent events
// for clients that cannot open a websocket.
type EventsSSEHandler struct {
	Bus       *event.Bus[event.FileChange]
	Logger    *logging.Logger
	AuthToken string
}

func (h *EventsSSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !validateToken(r, h.AuthToken) {
		logSSEError(h.Logger, r, http.StatusUnauthorized, "unauthorized", nil)
		writeJSONError(w, &apiError{Status: http.StatusUnauthorized, Message: "unauthorized"})
		return
	}
	if h.Bus == nil {
		writeJSONError(w, &apiError{Status: http.StatusServiceUnavailable, Message: "event stream unavailable"})
		return
	}

	output, cancel := h.Bus.SubscribeTypes(event.TypeFileChange)
	defer cancel()

	serveSSEStream(w, r, sseStreamConfig[event.FileChange]{
		Logger:       h.Logger,
		Output:       output,
		BuildPayload: buildFileChangePayload,
		EventName:    event.TypeFileChange,
	})
}
