package api

import (
	"net/http"

	"inkwell/internal/event"
	"inkwell/internal/logging"
	"inkwell/internal/metrics"
	"inkwell/internal/watchsession"

	"github.com/go-chi/chi/v5"
)

type RouterOptions struct {
	Sessions       *watchsession.Manager
	Bus            *event.Bus[event.FileChange]
	Logger         *logging.Logger
	Registry       *metrics.Registry
	AuthToken      string
	AllowedOrigins []string
}

// NewRouter builds the HTTP surface: JSON commands under /api, websocket
// streams under /ws, an event-stream fallback under /sse and prometheus
// metrics at /metrics.
func NewRouter(options RouterOptions) chi.Router {
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	logger := options.Logger
	token := options.AuthToken

	rest := &RestHandler{
		Sessions: options.Sessions,
		Logger:   logger,
	}

	router := chi.NewRouter()
	router.Use(loggingMiddleware(logger))

	router.Route("/api", func(r chi.Router) {
		r.Use(securityHeadersMiddleware(cacheControlNoStore))
		r.Use(requestMetricsMiddleware(registry))

		r.Get("/files/content", restHandler(token, logger, rest.handleReadFile))
		r.Put("/files/content", restHandler(token, logger, rest.handleWriteFile))
		r.Get("/dirs", restHandler(token, logger, rest.handleListDir))
		r.Get("/markdown", restHandler(token, logger, rest.handleListMarkdown))
		r.Get("/exists", restHandler(token, logger, rest.handleExists))
		r.Get("/metadata", restHandler(token, logger, rest.handleMetadata))

		r.Get("/watch", restHandler(token, logger, rest.handleWatchStatus))
		r.Post("/watch", restHandler(token, logger, rest.handleStartWatch))
		r.Delete("/watch", restHandler(token, logger, rest.handleStopWatch))

		r.Get("/logs", restHandler(token, logger, rest.handleLogs))
		r.Get("/version", restHandler(token, logger, rest.handleVersion))

		r.NotFound(jsonErrorMiddleware(logger, func(w http.ResponseWriter, r *http.Request) *apiError {
			return &apiError{Status: http.StatusNotFound, Message: "not found"}
		}))
		r.MethodNotAllowed(jsonErrorMiddleware(logger, func(w http.ResponseWriter, r *http.Request) *apiError {
			return &apiError{Status: http.StatusMethodNotAllowed, Message: "method not allowed"}
		}))
	})

	router.Route("/ws", func(r chi.Router) {
		r.Use(securityHeadersMiddleware(cacheControlNoStore))
		r.Method(http.MethodGet, "/events", &EventsHandler{
			Bus:            options.Bus,
			Logger:         logger,
			AuthToken:      token,
			AllowedOrigins: options.AllowedOrigins,
		})
		r.Method(http.MethodGet, "/logs", &LogsHandler{
			Logger:         logger,
			AuthToken:      token,
			AllowedOrigins: options.AllowedOrigins,
		})
	})

	router.Route("/sse", func(r chi.Router) {
		r.Use(securityHeadersMiddleware(cacheControlNoStore))
		r.Method(http.MethodGet, "/events", &EventsSSEHandler{
			Bus:       options.Bus,
			Logger:    logger,
			AuthToken: token,
		})
	})

	router.Method(http.MethodGet, "/metrics", registry.Handler())

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, cacheControlNoCache)
		if token != "" {
			w.Header().Set("X-Inkwell-Auth", "required")
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("inkwell ok\n"))
	})

	return router
}
