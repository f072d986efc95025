package api

import (
	"inkwell/internal/logging"
	"inkwell/internal/watchsession"
)

// RestHandler serves the file and watch command endpoints.
type RestHandler struct {
	Sessions *watchsession.Manager
	Logger   *logging.Logger
}

type fileContentResponse struct {
	Content string `json:"content"`
}

type writeFileRequest struct {
	Path    string  `json:"path"`
	Content *string `json:"content"`
}

type existsResponse struct {
	Exists bool `json:"exists"`
}

type watchRequest struct {
	Path string `json:"path"`
}

type logsResponse struct {
	Entries []logging.LogEntry `json:"entries"`
}
