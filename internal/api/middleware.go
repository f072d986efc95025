package api

import (
	"net/http"
	"time"

	"inkwell/internal/logging"
	"inkwell/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type apiError struct {
	Status  int
	Message string
	Code    string
}

type apiHandler func(http.ResponseWriter, *http.Request) *apiError

const (
	cacheControlNoStore = "no-store, must-revalidate"
	cacheControlNoCache = "no-cache"
)

func setSecurityHeaders(w http.ResponseWriter, cacheControl string) {
	headers := w.Header()
	headers.Set("X-Content-Type-Options", "nosniff")
	if cacheControl != "" {
		headers.Set("Cache-Control", cacheControl)
	}
}

func securityHeadersMiddleware(cacheControl string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			setSecurityHeaders(w, cacheControl)
			next.ServeHTTP(w, r)
		})
	}
}

func authMiddleware(token string, next apiHandler) apiHandler {
	return func(w http.ResponseWriter, r *http.Request) *apiError {
		if !validateToken(r, token) {
			return &apiError{Status: http.StatusUnauthorized, Message: "unauthorized"}
		}
		return next(w, r)
	}
}

func jsonErrorMiddleware(logger *logging.Logger, next apiHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			if err.Status >= http.StatusInternalServerError && logger != nil {
				logger.Warn("api request failed", map[string]string{
					"inkwell.category": "api",
					"method":           r.Method,
					"path":             r.URL.Path,
					"error":            err.Message,
				})
			}
			writeJSONError(w, err)
		}
	}
}

// requestMetricsMiddleware counts requests by chi route pattern, so
// parameterised paths share one series.
func requestMetricsMiddleware(registry *metrics.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			route := ""
			if routeContext := chi.RouteContext(r.Context()); routeContext != nil {
				route = routeContext.RoutePattern()
			}
			status := wrapped.Status()
			if status == 0 {
				status = http.StatusOK
			}
			registry.IncAPIRequest(route, r.Method, status)
		})
	}
}

func loggingMiddleware(logger *logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			next.ServeHTTP(w, r)
			if logger == nil {
				return
			}
			route := r.URL.Path
			if routeContext := chi.RouteContext(r.Context()); routeContext != nil && routeContext.RoutePattern() != "" {
				route = routeContext.RoutePattern()
			}
			logger.Debug("api request", map[string]string{
				"inkwell.category": "api",
				"inkwell.source":   "backend",
				"http.route":       route,
				"method":           r.Method,
				"path":             r.URL.Path,
				"duration":         time.Since(started).String(),
			})
		})
	}
}

func restHandler(token string, logger *logging.Logger, handler apiHandler) http.HandlerFunc {
	return jsonErrorMiddleware(logger, authMiddleware(token, handler))
}
