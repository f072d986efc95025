package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"inkwell/internal/event"
	"inkwell/internal/fsaccess"
	"inkwell/internal/logging"
	"inkwell/internal/metrics"
	"inkwell/internal/watchsession"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router   http.Handler
	sessions *watchsession.Manager
	bus      *event.Bus[event.FileChange]
	registry *metrics.Registry
	logger   *logging.Logger
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	registry := metrics.NewRegistry()
	logger := logging.NewLoggerWithOutput(logging.NewLogBuffer(64), logging.LevelDebug, io.Discard)
	bus := event.NewBus[event.FileChange](testContext(t), event.BusOptions{Name: "file_changes", Registry: registry})
	sessions := watchsession.NewManager(bus, watchsession.Options{
		Logger:   logger,
		Registry: registry,
		Debounce: 50 * time.Millisecond,
	})
	t.Cleanup(func() {
		_ = sessions.Close()
		bus.Close()
	})
	return &testServer{
		router: NewRouter(RouterOptions{
			Sessions:  sessions,
			Bus:       bus,
			Logger:    logger,
			Registry:  registry,
			AuthToken: token,
		}),
		sessions: sessions,
		bus:      bus,
		registry: registry,
		logger:   logger,
	}
}

func (s *testServer) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value), recorder.Body.String())
	return value
}

func query(path string) string {
	return "?path=" + strings.ReplaceAll(path, " ", "%20")
}

func TestWriteAndReadFileContent(t *testing.T) {
	server := newTestServer(t, "")
	path := filepath.Join(t.TempDir(), "notes", "today.md")

	body, err := json.Marshal(map[string]string{"path": path, "content": "# Today\n"})
	require.NoError(t, err)
	recorder := server.do(t, http.MethodPut, "/api/files/content", string(body))
	require.Equal(t, http.StatusNoContent, recorder.Code, recorder.Body.String())

	recorder = server.do(t, http.MethodGet, "/api/files/content"+query(path), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "no-store, must-revalidate", recorder.Header().Get("Cache-Control"))
	assert.Equal(t, "# Today\n", decodeBody[fileContentResponse](t, recorder).Content)
}

func TestWriteFileRequiresContent(t *testing.T) {
	server := newTestServer(t, "")

	recorder := server.do(t, http.MethodPut, "/api/files/content", `{"path":"/tmp/x.md"}`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeBody[errorResponse](t, recorder).Code)

	recorder = server.do(t, http.MethodPut, "/api/files/content", `{"path":`)
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestReadFileErrorsMapToStatus(t *testing.T) {
	server := newTestServer(t, "")
	dir := t.TempDir()

	recorder := server.do(t, http.MethodGet, "/api/files/content"+query(filepath.Join(dir, "missing.md")), "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	payload := decodeBody[errorResponse](t, recorder)
	assert.Equal(t, "not_found", payload.Code)
	assert.True(t, strings.HasPrefix(payload.Error, "failed to read file: "))

	binary := filepath.Join(dir, "blob.bin")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe}, 0o644))
	recorder = server.do(t, http.MethodGet, "/api/files/content"+query(binary), "")
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "invalid_text", decodeBody[errorResponse](t, recorder).Code)

	recorder = server.do(t, http.MethodGet, "/api/files/content", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestListDirEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "Notes"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	recorder := server.do(t, http.MethodGet, "/api/dirs"+query(root), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	listing := decodeBody[fsaccess.Listing](t, recorder)
	require.Len(t, listing.Entries, 2)
	assert.Equal(t, "Notes", listing.Entries[0].Name)
	assert.Equal(t, "README.md", listing.Entries[1].Name)
	assert.True(t, listing.Entries[1].IsMarkdown)

	recorder = server.do(t, http.MethodGet, "/api/dirs"+query(filepath.Join(root, "README.md")), "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, decodeBody[errorResponse](t, recorder).Error, "path is not a directory")
}

func TestListMarkdownEndpoint(t *testing.T) {
	server := newTestServer(t, "")
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "b", "one.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.MD"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip.txt"), []byte("x"), 0o644))

	recorder := server.do(t, http.MethodGet, "/api/markdown"+query(root), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	entries := decodeBody[[]fsaccess.Entry](t, recorder)
	require.Len(t, entries, 2)
	assert.Equal(t, filepath.Join(root, "a.MD"), entries[0].Path)
	assert.Equal(t, filepath.Join(root, "b", "one.md"), entries[1].Path)

	recorder = server.do(t, http.MethodGet, "/api/markdown"+query(filepath.Join(root, "missing")), "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestExistsAndMetadataEndpoints(t *testing.T) {
	server := newTestServer(t, "")
	root := t.TempDir()
	file := filepath.Join(root, "note.md")
	require.NoError(t, os.WriteFile(file, []byte("hello"), 0o644))

	recorder := server.do(t, http.MethodGet, "/api/exists"+query(file), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, decodeBody[existsResponse](t, recorder).Exists)

	recorder = server.do(t, http.MethodGet, "/api/exists"+query(filepath.Join(root, "nope")), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.False(t, decodeBody[existsResponse](t, recorder).Exists)

	recorder = server.do(t, http.MethodGet, "/api/metadata"+query(file), "")
	require.Equal(t, http.StatusOK, recorder.Code)
	metadata := decodeBody[fsaccess.Metadata](t, recorder)
	assert.Equal(t, "note.md", metadata.Name)
	assert.True(t, metadata.IsMarkdown)
	assert.Equal(t, int64(5), metadata.Size)

	recorder = server.do(t, http.MethodGet, "/api/metadata"+query(filepath.Join(root, "nope")), "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Contains(t, decodeBody[errorResponse](t, recorder).Error, "file does not exist")
}

func TestWatchLifecycleEndpoints(t *testing.T) {
	server := newTestServer(t, "")
	root := t.TempDir()

	recorder := server.do(t, http.MethodGet, "/api/watch", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.False(t, decodeBody[watchsession.Status](t, recorder).Watching)

	body, err := json.Marshal(watchRequest{Path: root})
	require.NoError(t, err)
	recorder = server.do(t, http.MethodPost, "/api/watch", string(body))
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())
	status := decodeBody[watchsession.Status](t, recorder)
	assert.True(t, status.Watching)
	assert.Equal(t, root, status.Path)

	recorder = server.do(t, http.MethodDelete, "/api/watch", "")
	require.Equal(t, http.StatusNoContent, recorder.Code)
	assert.False(t, server.sessions.Status().Watching)

	recorder = server.do(t, http.MethodDelete, "/api/watch", "")
	require.Equal(t, http.StatusNoContent, recorder.Code)
}

func TestWatchRejectsInvalidPath(t *testing.T) {
	server := newTestServer(t, "")

	body, err := json.Marshal(watchRequest{Path: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	recorder := server.do(t, http.MethodPost, "/api/watch", string(body))
	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, decodeBody[errorResponse](t, recorder).Error, "invalid directory path")
}

func TestWatchAfterCloseIsUnavailable(t *testing.T) {
	server := newTestServer(t, "")
	require.NoError(t, server.sessions.Close())

	recorder := server.do(t, http.MethodDelete, "/api/watch", "")
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, "service_unavailable", decodeBody[errorResponse](t, recorder).Code)
}

func TestRoutesRequireToken(t *testing.T) {
	server := newTestServer(t, "secret")
	root := t.TempDir()

	recorder := server.do(t, http.MethodGet, "/api/exists"+query(root), "")
	require.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "unauthorized", decodeBody[errorResponse](t, recorder).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/exists"+query(root), nil)
	req.Header.Set("Authorization", "Bearer secret")
	recorder = httptest.NewRecorder()
	server.router.ServeHTTP(recorder, req)
	require.Equal(t, http.StatusOK, recorder.Code)

	recorder = server.do(t, http.MethodGet, "/api/exists"+query(root)+"&token=secret", "")
	require.Equal(t, http.StatusOK, recorder.Code)
}

func TestUnknownRoutesReturnJSONErrors(t *testing.T) {
	server := newTestServer(t, "")

	recorder := server.do(t, http.MethodGet, "/api/nope", "")
	require.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "not_found", decodeBody[errorResponse](t, recorder).Code)

	recorder = server.do(t, http.MethodPatch, "/api/watch", "")
	require.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
	assert.Equal(t, "method_not_allowed", decodeBody[errorResponse](t, recorder).Code)
}

func TestRequestsAreCountedByRoute(t *testing.T) {
	server := newTestServer(t, "")
	root := t.TempDir()

	server.do(t, http.MethodGet, "/api/exists"+query(root), "")
	server.do(t, http.MethodGet, "/api/exists"+query(root), "")

	recorder := server.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(),
		`inkwell_api_requests_total{method="GET",route="/api/exists",status="200"} 2`)

	count, err := testutil.GatherAndCount(server.registry.Gatherer(), "inkwell_api_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestLogsAndVersionEndpoints(t *testing.T) {
	server := newTestServer(t, "")
	server.logger.Info("hello", nil)
	server.logger.Error("boom", nil)

	recorder := server.do(t, http.MethodGet, "/api/logs?level=error", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	logs := decodeBody[logsResponse](t, recorder)
	require.NotEmpty(t, logs.Entries)
	for _, entry := range logs.Entries {
		assert.Equal(t, logging.LevelError, entry.Level)
	}

	recorder = server.do(t, http.MethodGet, "/api/logs?level=loud", "")
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = server.do(t, http.MethodGet, "/api/version", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"version"`)

	recorder = server.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "inkwell ok\n", recorder.Body.String())
}

// testContext returns a context canceled when the test finishes (stand-in
// for testing.T.Context, Go 1.24+).
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
