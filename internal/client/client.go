package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"inkwell/internal/watchsession"
)

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// WatchStatus fetches the watch session state of a running server.
func WatchStatus(client *http.Client, baseURL, token string) (watchsession.Status, error) {
	var status watchsession.Status
	request, err := newRequest(http.MethodGet, baseURL, "/api/watch", nil)
	if err != nil {
		return status, err
	}
	addToken(request, token)

	response, err := ensureClient(client).Do(request)
	if err != nil {
		return status, fmt.Errorf("status request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return status, readHTTPError(response)
	}
	if err := json.NewDecoder(response.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode status response: %w", err)
	}
	return status, nil
}

// StartWatch asks the server to replace its watch session with one on path.
func StartWatch(client *http.Client, baseURL, token, path string) (watchsession.Status, error) {
	var status watchsession.Status
	path = strings.TrimSpace(path)
	if path == "" {
		return status, errors.New("path is required")
	}

	body, err := json.Marshal(map[string]string{"path": path})
	if err != nil {
		return status, fmt.Errorf("encode watch request: %w", err)
	}
	request, err := newRequest(http.MethodPost, baseURL, "/api/watch", bytes.NewReader(body))
	if err != nil {
		return status, err
	}
	request.Header.Set("Content-Type", "application/json")
	addToken(request, token)

	response, err := ensureClient(client).Do(request)
	if err != nil {
		return status, fmt.Errorf("watch request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return status, readHTTPError(response)
	}
	if err := json.NewDecoder(response.Body).Decode(&status); err != nil {
		return status, fmt.Errorf("decode watch response: %w", err)
	}
	return status, nil
}

// StopWatch ends the server's watch session. Stopping with no session is not an error.
func StopWatch(client *http.Client, baseURL, token string) error {
	request, err := newRequest(http.MethodDelete, baseURL, "/api/watch", nil)
	if err != nil {
		return err
	}
	addToken(request, token)

	response, err := ensureClient(client).Do(request)
	if err != nil {
		return fmt.Errorf("stop request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode == http.StatusNoContent || response.StatusCode == http.StatusOK {
		return nil
	}
	return readHTTPError(response)
}

func newRequest(method, baseURL, path string, body io.Reader) (*http.Request, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("base URL is required")
	}
	request, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request failed: %w", err)
	}
	return request, nil
}

func ensureClient(client *http.Client) *http.Client {
	if client != nil {
		return client
	}
	return http.DefaultClient
}

func addToken(request *http.Request, token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	request.Header.Set("Authorization", "Bearer "+token)
}

func readHTTPError(response *http.Response) *HTTPError {
	httpErr := &HTTPError{StatusCode: response.StatusCode, Message: response.Status}
	body, _ := io.ReadAll(response.Body)
	text := strings.TrimSpace(string(body))
	if text == "" {
		return httpErr
	}
	var payload struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Error) != "" {
		httpErr.Message = payload.Error
		httpErr.Code = payload.Code
		return httpErr
	}
	httpErr.Message = text
	return httpErr
}
