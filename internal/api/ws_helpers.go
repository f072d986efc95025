package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"inkwell/internal/logging"

	"github.com/gorilla/websocket"
)

const (
	wsBufferSize   = 1024
	wsWriteTimeout = 10 * time.Second
	wsPingInterval = 30 * time.Second
	// Close frame reasons are limited to 123 bytes by RFC 6455.
	wsMaxCloseReason = 123
)

type wsStreamConfig[T any] struct {
	AllowedOrigins []string
	// Conn is used when the caller already upgraded; otherwise the stream
	// upgrades the request itself.
	Conn         *websocket.Conn
	Output       <-chan T
	BuildPayload func(T) (any, bool)
	WriteTimeout time.Duration
	PingInterval time.Duration
	Logger       *logging.Logger
	// PreWrite runs on the connection before the first streamed value.
	PreWrite func(*websocket.Conn) error
}

type wsError struct {
	Status       int
	CloseCode    int
	Message      string
	Err          error
	SendEnvelope bool
}

type wsErrorPayload struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	CloseCode int    `json:"close_code,omitempty"`
}

var errWSNilOutput = errors.New("websocket output channel is nil")

// wsWriteLoop owns all writes to Conn once started.
type wsWriteLoop struct {
	Conn     *websocket.Conn
	timeout  time.Duration
	stopOnce sync.Once
	done     chan struct{}
}

func (loop *wsWriteLoop) Stop() {
	if loop == nil {
		return
	}
	loop.stopOnce.Do(func() { close(loop.done) })
}

func (loop *wsWriteLoop) deadline() time.Time {
	return time.Now().Add(loop.timeout)
}

func (loop *wsWriteLoop) writeJSON(payload any) error {
	if err := loop.Conn.SetWriteDeadline(loop.deadline()); err != nil {
		return err
	}
	return loop.Conn.WriteJSON(payload)
}

func (loop *wsWriteLoop) goingAway() {
	message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed")
	_ = loop.Conn.WriteControl(websocket.CloseMessage, message, loop.deadline())
}

func requireWSToken(w http.ResponseWriter, r *http.Request, token string, logger *logging.Logger) bool {
	if validateToken(r, token) {
		return true
	}
	writeWSError(w, r, nil, logger, wsError{
		Status:    http.StatusUnauthorized,
		CloseCode: websocket.ClosePolicyViolation,
		Message:   "unauthorized",
	})
	return false
}

func upgradeWebSocket(w http.ResponseWriter, r *http.Request, allowedOrigins []string) (*websocket.Conn, error) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  wsBufferSize,
		WriteBufferSize: wsBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, allowedOrigins)
		},
	}
	return upgrader.Upgrade(w, r, nil)
}

// startWSWriteLoop pumps Output to the connection as JSON frames and pings
// idle clients. It ends with a going-away close frame when Output closes.
func startWSWriteLoop[T any](w http.ResponseWriter, r *http.Request, config wsStreamConfig[T]) (*wsWriteLoop, error) {
	if config.Output == nil {
		return nil, errWSNilOutput
	}

	conn := config.Conn
	if conn == nil {
		upgraded, err := upgradeWebSocket(w, r, config.AllowedOrigins)
		if err != nil {
			return nil, err
		}
		conn = upgraded
	}
	if config.PreWrite != nil {
		if err := config.PreWrite(conn); err != nil {
			if config.Conn == nil {
				_ = conn.Close()
			}
			return nil, err
		}
	}

	loop := &wsWriteLoop{Conn: conn, timeout: config.WriteTimeout, done: make(chan struct{})}
	if loop.timeout <= 0 {
		loop.timeout = wsWriteTimeout
	}
	pingInterval := config.PingInterval
	if pingInterval <= 0 {
		pingInterval = wsPingInterval
	}
	build := config.BuildPayload
	if build == nil {
		build = func(value T) (any, bool) { return value, true }
	}

	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-loop.done:
				return
			case <-ticker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, loop.deadline()); err != nil {
					return
				}
			case value, ok := <-config.Output:
				if !ok {
					loop.goingAway()
					return
				}
				payload, send := build(value)
				if !send {
					continue
				}
				if err := loop.writeJSON(payload); err != nil {
					return
				}
			}
		}
	}()
	return loop, nil
}

// serveWSStream streams Output and blocks reading until the client
// disconnects. Inbound messages are discarded.
func serveWSStream[T any](w http.ResponseWriter, r *http.Request, config wsStreamConfig[T]) {
	loop, err := startWSWriteLoop(w, r, config)
	if err != nil {
		if !errors.Is(err, errWSNilOutput) {
			logWSError(config.Logger, r, wsError{
				Status:  http.StatusBadRequest,
				Message: "websocket upgrade failed",
				Err:     err,
			})
		}
		return
	}
	defer loop.Conn.Close()
	defer loop.Stop()

	for {
		if _, _, err := loop.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeWSError closes conn with a code derived from the status, or answers
// with a plain HTTP error when no connection was upgraded.
func writeWSError(w http.ResponseWriter, r *http.Request, conn *websocket.Conn, logger *logging.Logger, wsErr wsError) {
	if wsErr.Status == 0 {
		wsErr.Status = http.StatusInternalServerError
	}
	wsErr.Message = strings.TrimSpace(wsErr.Message)
	if wsErr.Message == "" {
		wsErr.Message = http.StatusText(wsErr.Status)
	}
	if wsErr.CloseCode == 0 {
		wsErr.CloseCode = closeCodeForStatus(wsErr.Status)
	}
	logWSError(logger, r, wsErr)

	if conn == nil {
		http.Error(w, wsErr.Message, wsErr.Status)
		return
	}

	deadline := time.Now().Add(wsWriteTimeout)
	if wsErr.SendEnvelope {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.WriteJSON(wsErrorPayload{
			Type:      "error",
			Message:   wsErr.Message,
			Status:    wsErr.Status,
			CloseCode: wsErr.CloseCode,
		})
	}
	closeMessage := websocket.FormatCloseMessage(wsErr.CloseCode, truncateCloseReason(wsErr.Message))
	_ = conn.WriteControl(websocket.CloseMessage, closeMessage, deadline)
	_ = conn.Close()
}

func logWSError(logger *logging.Logger, r *http.Request, wsErr wsError) {
	if logger == nil || r == nil {
		return
	}
	closeCode := wsErr.CloseCode
	if closeCode == 0 {
		closeCode = closeCodeForStatus(wsErr.Status)
	}
	fields := map[string]string{
		"inkwell.category": "api",
		"path":             r.URL.Path,
		"status":           strconv.Itoa(wsErr.Status),
		"close_code":       strconv.Itoa(closeCode),
		"message":          wsErr.Message,
	}
	if r.RemoteAddr != "" {
		fields["remote_addr"] = r.RemoteAddr
	}
	if wsErr.Err != nil {
		fields["error"] = wsErr.Err.Error()
	}
	if wsErr.Status >= http.StatusInternalServerError {
		logger.Error("websocket error", fields)
		return
	}
	logger.Warn("websocket error", fields)
}

func closeCodeForStatus(status int) int {
	switch {
	case status == http.StatusBadRequest:
		return websocket.CloseProtocolError
	case status == http.StatusServiceUnavailable:
		return websocket.CloseTryAgainLater
	case status >= http.StatusBadRequest && status < http.StatusInternalServerError:
		return websocket.ClosePolicyViolation
	default:
		return websocket.CloseInternalServerErr
	}
}

func truncateCloseReason(reason string) string {
	if len(reason) <= wsMaxCloseReason {
		return reason
	}
	return reason[:wsMaxCloseReason]
}
