package mcp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestGuardRejectsMissingOrBadToken(t *testing.T) {
	g := newGuard(http.HandlerFunc(okHandler), HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 60})

	cases := []struct {
		header string
		want   int
	}{
		{header: "", want: http.StatusUnauthorized},
		{header: "Basic c2VjcmV0", want: http.StatusUnauthorized},
		{header: "Bearer ", want: http.StatusUnauthorized},
		{header: "Bearer wrong", want: http.StatusForbidden},
		{header: "Bearer secret", want: http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/mcp", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("Authorization %q: expected %d, got %d", tc.header, tc.want, rec.Code)
		}
	}
}

func TestGuardWithoutConfiguredTokenRejectsEverything(t *testing.T) {
	g := newGuard(http.HandlerFunc(okHandler), HTTPHandlerConfig{})

	req := httptest.NewRequest(http.MethodPost, "http://example.com/mcp", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestGuardRateLimitsPerCaller(t *testing.T) {
	g := newGuard(http.HandlerFunc(okHandler), HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 1})
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return now }

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "http://example.com/mcp", nil)
		req.RemoteAddr = "127.0.0.1:1234"
		req.Header.Set("Authorization", "Bearer secret")
		rec := httptest.NewRecorder()
		g.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", rec.Code)
	}
	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be limited, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Fatalf("expected Retry-After 60, got %q", rec.Header().Get("Retry-After"))
	}

	now = now.Add(time.Minute)
	if rec := send(); rec.Code != http.StatusOK {
		t.Fatalf("expected budget to refill after a minute, got %d", rec.Code)
	}
}

func TestGuardCapsRequestBody(t *testing.T) {
	var readErr error
	g := newGuard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}), HTTPHandlerConfig{AuthToken: "secret", MaxBodyBytes: 8})

	req := httptest.NewRequest(http.MethodPost, "http://example.com/mcp", strings.NewReader(strings.Repeat("x", 64)))
	req.Header.Set("Authorization", "Bearer secret")
	g.ServeHTTP(httptest.NewRecorder(), req)

	var maxErr *http.MaxBytesError
	if !errors.As(readErr, &maxErr) {
		t.Fatalf("expected body limit error, got %v", readErr)
	}
}

func TestCallerLimiterSeparatesAndForgetsCallers(t *testing.T) {
	limiter := newCallerLimiter(1)
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

	if !limiter.allow("token-a|10.0.0.1", now) {
		t.Fatal("expected first caller to pass")
	}
	if !limiter.allow("token-b|10.0.0.1", now) {
		t.Fatal("expected second caller to have its own bucket")
	}
	if limiter.allow("token-a|10.0.0.1", now) {
		t.Fatal("expected first caller to be limited")
	}

	later := now.Add(idleCallerTTL + time.Second)
	limiter.allow("token-c|10.0.0.1", later)
	if len(limiter.buckets) != 1 {
		t.Fatalf("expected idle callers to be evicted, have %d buckets", len(limiter.buckets))
	}
}

func TestCallerKey(t *testing.T) {
	if got := callerKey("", "10.1.2.3:5555"); got != "10.1.2.3" {
		t.Fatalf("expected host-only key, got %q", got)
	}
	if got := callerKey("abc", "10.1.2.3:5555"); got != "abc|10.1.2.3" {
		t.Fatalf("expected token key, got %q", got)
	}
	if got := callerKey("abc", ""); got != "abc|unknown" {
		t.Fatalf("expected unknown host, got %q", got)
	}
}

func TestHTTPTransportServesToolsWithToken(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv, _, _ := testServer()
	httpSrv := httptest.NewServer(NewHTTPTransportHandler(srv, HTTPHandlerConfig{AuthToken: "secret", RateLimitPerMin: 600}))
	defer httpSrv.Close()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-http-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   httpSrv.URL,
		HTTPClient: &http.Client{Transport: &authRoundTripper{token: "secret"}},
	}, nil)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer session.Close()

	tools, err := session.ListTools(ctx, &sdkmcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("list tools failed: %v", err)
	}
	if len(tools.Tools) < 5 {
		t.Fatalf("expected at least 5 tools, got %d", len(tools.Tools))
	}
}
