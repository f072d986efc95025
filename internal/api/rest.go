package api

import (
	"net/http"
	"strconv"

	"inkwell/internal/fsaccess"
	"inkwell/internal/logging"
	"inkwell/internal/version"
)

func (h *RestHandler) handleReadFile(w http.ResponseWriter, r *http.Request) *apiError {
	path, apiErr := requirePathQuery(r)
	if apiErr != nil {
		return apiErr
	}
	content, err := fsaccess.ReadTextFile(path)
	if err != nil {
		return errorFromDomain(err)
	}
	writeJSON(w, http.StatusOK, fileContentResponse{Content: content})
	return nil
}

func (h *RestHandler) handleWriteFile(w http.ResponseWriter, r *http.Request) *apiError {
	var request writeFileRequest
	if apiErr := decodeJSON(r, &request); apiErr != nil {
		return apiErr
	}
	if request.Path == "" {
		return &apiError{Status: http.StatusBadRequest, Message: "path is required"}
	}
	if request.Content == nil {
		return &apiError{Status: http.StatusBadRequest, Message: "content is required"}
	}
	if err := fsaccess.WriteTextFile(request.Path, *request.Content); err != nil {
		return errorFromDomain(err)
	}
	h.logDebug("file written", map[string]string{
		"path":  request.Path,
		"bytes": strconv.Itoa(len(*request.Content)),
	})
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *RestHandler) handleListDir(w http.ResponseWriter, r *http.Request) *apiError {
	path, apiErr := requirePathQuery(r)
	if apiErr != nil {
		return apiErr
	}
	listing, err := fsaccess.ListDir(path)
	if err != nil {
		return errorFromDomain(err)
	}
	writeJSON(w, http.StatusOK, listing)
	return nil
}

func (h *RestHandler) handleListMarkdown(w http.ResponseWriter, r *http.Request) *apiError {
	path, apiErr := requirePathQuery(r)
	if apiErr != nil {
		return apiErr
	}
	entries, err := fsaccess.ListMarkdownFiles(path)
	if err != nil {
		return errorFromDomain(err)
	}
	writeJSON(w, http.StatusOK, entries)
	return nil
}

func (h *RestHandler) handleExists(w http.ResponseWriter, r *http.Request) *apiError {
	path, apiErr := requirePathQuery(r)
	if apiErr != nil {
		return apiErr
	}
	writeJSON(w, http.StatusOK, existsResponse{Exists: fsaccess.PathExists(path)})
	return nil
}

func (h *RestHandler) handleMetadata(w http.ResponseWriter, r *http.Request) *apiError {
	path, apiErr := requirePathQuery(r)
	if apiErr != nil {
		return apiErr
	}
	metadata, err := fsaccess.Stat(path)
	if err != nil {
		return errorFromDomain(err)
	}
	writeJSON(w, http.StatusOK, metadata)
	return nil
}

func (h *RestHandler) handleStartWatch(w http.ResponseWriter, r *http.Request) *apiError {
	if apiErr := h.requireSessions(); apiErr != nil {
		return apiErr
	}
	var request watchRequest
	if apiErr := decodeJSON(r, &request); apiErr != nil {
		return apiErr
	}
	if err := h.Sessions.StartWatch(request.Path); err != nil {
		return errorFromDomain(err)
	}
	writeJSON(w, http.StatusOK, h.Sessions.Status())
	return nil
}

func (h *RestHandler) handleStopWatch(w http.ResponseWriter, r *http.Request) *apiError {
	if apiErr := h.requireSessions(); apiErr != nil {
		return apiErr
	}
	if err := h.Sessions.StopWatch(); err != nil {
		return errorFromDomain(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *RestHandler) handleWatchStatus(w http.ResponseWriter, r *http.Request) *apiError {
	if apiErr := h.requireSessions(); apiErr != nil {
		return apiErr
	}
	writeJSON(w, http.StatusOK, h.Sessions.Status())
	return nil
}

func (h *RestHandler) handleLogs(w http.ResponseWriter, r *http.Request) *apiError {
	if h.Logger == nil || h.Logger.Buffer() == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "log buffer unavailable"}
	}
	entries := h.Logger.Buffer().List()
	if rawLevel := r.URL.Query().Get("level"); rawLevel != "" {
		minLevel, ok := logging.ParseLevel(rawLevel)
		if !ok {
			return &apiError{Status: http.StatusBadRequest, Message: "invalid level: " + rawLevel}
		}
		filtered := entries[:0]
		for _, entry := range entries {
			if logging.LevelAtLeast(entry.Level, minLevel) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}
	if entries == nil {
		entries = []logging.LogEntry{}
	}
	writeJSON(w, http.StatusOK, logsResponse{Entries: entries})
	return nil
}

func (h *RestHandler) handleVersion(w http.ResponseWriter, r *http.Request) *apiError {
	writeJSON(w, http.StatusOK, version.Get())
	return nil
}

func (h *RestHandler) requireSessions() *apiError {
	if h.Sessions == nil {
		return &apiError{Status: http.StatusServiceUnavailable, Message: "watch manager unavailable"}
	}
	return nil
}

func (h *RestHandler) logDebug(message string, fields map[string]string) {
	if h.Logger == nil {
		return
	}
	fields["inkwell.category"] = "files"
	h.Logger.Debug(message, fields)
}
