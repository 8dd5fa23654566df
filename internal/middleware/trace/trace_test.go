package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "saralfin/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := applog.New(applog.Config{Output: buf, Level: slog.LevelDebug, Component: applog.ComponentHTTP})
	return NewMiddleware(func(*http.Request) string { return "203.0.113.1" }, logger)
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if applog.FromContext(r.Context()) == nil {
			t.Error("no logger in context")
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", nil))

	if !strings.HasPrefix(seen, "req_") || rec.Header().Get(RequestIDHeader) != seen {
		t.Fatalf("request id %q, header %q", seen, rec.Header().Get(RequestIDHeader))
	}
	if !strings.Contains(buf.String(), "status_code=201") {
		t.Errorf("completion log missing status: %s", buf.String())
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		in   string
		keep bool
	}{
		{"abc-123", true},
		{"has space", false},
		{strings.Repeat("x", 65), false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set(RequestIDHeader, tt.in)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		if got := rec.Header().Get(RequestIDHeader) == tt.in; got != tt.keep {
			t.Errorf("incoming %q kept=%v, want %v", tt.in, got, tt.keep)
		}
	}
}

func TestMetrics(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)

	codes := []int{200, 404, 500, 204}
	for _, code := range codes {
		code := code
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(code) }))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.ClientErrors != 1 || got.ServerErrors != 1 || got.InFlight != 0 {
		t.Errorf("unexpected metrics: %+v", got)
	}
}

func TestResponseWriterFlushes(t *testing.T) {
	var buf bytes.Buffer
	m := newTestMiddleware(&buf)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		if !ok {
			t.Fatal("wrapped writer is not a Flusher")
		}
		_, _ = w.Write([]byte("chunk"))
		f.Flush()
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !rec.Flushed || rec.Body.String() != "chunk" {
		t.Errorf("flushed=%v body=%q", rec.Flushed, rec.Body.String())
	}
}
