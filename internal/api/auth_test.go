package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/dirs", nil)
	if !validateToken(req, "") {
		t.Fatalf("expected empty token to allow requests")
	}
	if validateToken(req, "secret") {
		t.Fatalf("expected missing token to be rejected")
	}

	req.Header.Set("Authorization", "Bearer wrong")
	if validateToken(req, "secret") {
		t.Fatalf("expected wrong bearer token to be rejected")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/dirs?token=secret", nil)
	if !validateToken(req, "secret") {
		t.Fatalf("expected query token to be accepted")
	}
}

func TestIsOriginAllowed(t *testing.T) {
	cases := []struct {
		origin  string
		allowed []string
		want    bool
	}{
		{origin: "", want: true},
		{origin: "http://localhost:5173", want: true},
		{origin: "http://127.0.0.1:3000", want: true},
		{origin: "http://[::1]:3000", want: true},
		{origin: "https://notes.example", want: false},
		{origin: "https://notes.example", allowed: []string{"notes.example"}, want: true},
		{origin: "tauri://localhost", want: true},
		{origin: "https://app.internal", allowed: []string{"https://app.internal"}, want: true},
		{origin: "https://inkwell.test", want: true},
		{origin: "::not a url", want: false},
	}
	for _, testCase := range cases {
		req := httptest.NewRequest(http.MethodGet, "http://inkwell.test/ws/events", nil)
		if testCase.origin != "" {
			req.Header.Set("Origin", testCase.origin)
		}
		if got := isOriginAllowed(req, testCase.allowed); got != testCase.want {
			t.Fatalf("origin %q: expected %t, got %t", testCase.origin, testCase.want, got)
		}
	}
}

func TestHostOnly(t *testing.T) {
	if got := hostOnly("[::1]:8080"); got != "::1" {
		t.Fatalf("expected ::1, got %q", got)
	}
	if got := hostOnly("localhost:8080"); got != "localhost" {
		t.Fatalf("expected localhost, got %q", got)
	}
	if got := hostOnly("example.com"); got != "example.com" {
		t.Fatalf("expected example.com, got %q", got)
	}
}
