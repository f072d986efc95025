package api

import (
	"errors"
	"net/http"

	"inkwell/internal/fsaccess"
	"inkwell/internal/watchsession"
)

func errorCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusUnprocessableEntity:
		return "invalid_text"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		if status >= http.StatusInternalServerError {
			return "internal_error"
		}
	}
	return ""
}

// errorFromDomain maps accessor and watch errors onto HTTP responses. The
// message is the error text so callers can show it as is.
func errorFromDomain(err error) *apiError {
	if err == nil {
		return nil
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, fsaccess.ErrPathNotFound):
		status = http.StatusNotFound
	case errors.Is(err, fsaccess.ErrNotADirectory), errors.Is(err, watchsession.ErrInvalidPath):
		status = http.StatusBadRequest
	case errors.Is(err, fsaccess.ErrNotText):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, watchsession.ErrClosed):
		status = http.StatusServiceUnavailable
	}
	return &apiError{Status: status, Message: err.Error()}
}
