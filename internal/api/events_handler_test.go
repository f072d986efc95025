package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inkwell/internal/event"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialWS(t *testing.T, serverURL, path string, header http.Header) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForSubscribers(t *testing.T, bus *event.Bus[event.FileChange], want int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for bus.SubscriberCount() < want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, got %d", want, bus.SubscriberCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestEventsStreamDeliversFileChanges(t *testing.T) {
	server := newTestServer(t, "")
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/ws/events", nil)
	waitForSubscribers(t, server.bus, 1)

	server.bus.Publish(event.NewFileChange("/notes/a.md"))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var payload fileChangePayload
	require.NoError(t, conn.ReadJSON(&payload))
	assert.Equal(t, "file-change", payload.Type)
	assert.Equal(t, "/notes/a.md", payload.Path)
	assert.Equal(t, "change", payload.Kind)
	assert.False(t, payload.Timestamp.IsZero())
}

func TestEventsStreamEndToEndWatch(t *testing.T) {
	server := newTestServer(t, "")
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/ws/events", nil)
	waitForSubscribers(t, server.bus, 1)

	root := t.TempDir()
	body, err := json.Marshal(watchRequest{Path: root})
	require.NoError(t, err)
	response, err := http.Post(httpServer.URL+"/api/watch", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	_ = response.Body.Close()
	require.Equal(t, http.StatusOK, response.StatusCode)

	path := filepath.Join(root, "a.md")
	require.NoError(t, os.WriteFile(path, []byte("# a"), 0o644))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var payload fileChangePayload
		require.NoError(t, conn.ReadJSON(&payload))
		if payload.Path == path {
			assert.Equal(t, "change", payload.Kind)
			return
		}
	}
}

func TestEventsStreamRequiresToken(t *testing.T) {
	server := newTestServer(t, "secret")
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws/events"
	_, response, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusUnauthorized, response.StatusCode)

	conn := dialWS(t, httpServer.URL, "/ws/events?token=secret", nil)
	assert.NotNil(t, conn)
}

func TestEventsStreamRejectsForeignOrigin(t *testing.T) {
	server := newTestServer(t, "")
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	wsURL := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/ws/events"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, response, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, response)
	assert.Equal(t, http.StatusForbidden, response.StatusCode)
}

func TestEventsStreamUnsubscribesOnDisconnect(t *testing.T) {
	server := newTestServer(t, "")
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/ws/events", nil)
	waitForSubscribers(t, server.bus, 1)
	require.NoError(t, conn.Close())

	deadline := time.Now().Add(time.Second)
	for server.bus.SubscriberCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected subscription to be released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestBuildFileChangePayloadSkipsEmptyPath(t *testing.T) {
	_, ok := buildFileChangePayload(event.FileChange{})
	assert.False(t, ok)

	payload, ok := buildFileChangePayload(event.FileChange{Path: "/x.md"})
	require.True(t, ok)
	typed := payload.(fileChangePayload)
	assert.Equal(t, "change", typed.Kind)
	assert.False(t, typed.Timestamp.IsZero())
}

func TestLogsStreamReplaysBuffer(t *testing.T) {
	server := newTestServer(t, "")
	server.logger.Warn("replayed entry", nil)
	httpServer := httptest.NewServer(server.router)
	defer httpServer.Close()

	conn := dialWS(t, httpServer.URL, "/ws/logs?level=warning", nil)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var entry map[string]any
	require.NoError(t, conn.ReadJSON(&entry))
	assert.Equal(t, "replayed entry", entry["message"])
}
