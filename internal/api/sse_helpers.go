package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"inkwell/internal/logging"
)

const (
	defaultSSEHeartbeatInterval = 15 * time.Second
	defaultSSERetryInterval     = 5 * time.Second
)

var errSSENoFlusher = errors.New("sse response writer does not support flushing")

type sseStreamConfig[T any] struct {
	Logger            *logging.Logger
	Output            <-chan T
	BuildPayload      func(T) (any, bool)
	EventName         string
	HeartbeatInterval time.Duration
	RetryInterval     time.Duration
}

type sseWriter struct {
	writer  http.ResponseWriter
	flusher http.Flusher
}

// serveSSEStream writes Output as server-sent events until the client goes
// away or Output closes.
func serveSSEStream[T any](w http.ResponseWriter, r *http.Request, config sseStreamConfig[T]) {
	if config.Output == nil {
		return
	}
	writer, err := startSSEWriter(w)
	if err != nil {
		logSSEError(config.Logger, r, http.StatusInternalServerError, "sse stream unavailable", err)
		http.Error(w, "sse stream unavailable", http.StatusInternalServerError)
		return
	}

	retry := config.RetryInterval
	if retry <= 0 {
		retry = defaultSSERetryInterval
	}
	if err := writer.writeRetry(retry); err != nil {
		return
	}

	heartbeat := config.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultSSEHeartbeatInterval
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	build := config.BuildPayload
	if build == nil {
		build = func(value T) (any, bool) { return value, true }
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := writer.writeComment("ping"); err != nil {
				return
			}
		case value, ok := <-config.Output:
			if !ok {
				return
			}
			payload, ok := build(value)
			if !ok {
				continue
			}
			if err := writer.writeEvent(config.EventName, payload); err != nil {
				return
			}
		}
	}
}

func startSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errSSENoFlusher
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", cacheControlNoStore)
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{writer: w, flusher: flusher}, nil
}

func (writer *sseWriter) writeRetry(retry time.Duration) error {
	if _, err := io.WriteString(writer.writer, "retry: "+strconv.FormatInt(retry.Milliseconds(), 10)+"\n\n"); err != nil {
		return err
	}
	writer.flusher.Flush()
	return nil
}

func (writer *sseWriter) writeComment(comment string) error {
	if _, err := io.WriteString(writer.writer, ": "+comment+"\n\n"); err != nil {
		return err
	}
	writer.flusher.Flush()
	return nil
}

func (writer *sseWriter) writeEvent(name string, payload any) error {
	if name != "" {
		if _, err := io.WriteString(writer.writer, "event: "+name+"\n"); err != nil {
			return err
		}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if err := writeSSEData(writer.writer, data); err != nil {
		return err
	}
	writer.flusher.Flush()
	return nil
}

// writeSSEData prefixes every line of data so embedded newlines survive.
func writeSSEData(writer io.Writer, data []byte) error {
	var out bytes.Buffer
	for _, line := range bytes.Split(data, []byte("\n")) {
		out.WriteString("data: ")
		out.Write(line)
		out.WriteByte('\n')
	}
	out.WriteByte('\n')
	_, err := writer.Write(out.Bytes())
	return err
}

func logSSEError(logger *logging.Logger, r *http.Request, status int, message string, err error) {
	if logger == nil || r == nil {
		return
	}
	fields := map[string]string{
		"path":    r.URL.Path,
		"status":  strconv.Itoa(status),
		"message": message,
	}
	if r.RemoteAddr != "" {
		fields["remote_addr"] = r.RemoteAddr
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		logger.Error("sse error", fields)
	} else {
		logger.Warn("sse error", fields)
	}
}
