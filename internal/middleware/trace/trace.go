// Package trace tags each request with an id, logs it and keeps request counters.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	applog "saralfin/internal/log"
)

// ContextKey type for context keys
type ContextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey ContextKey = "request_id"

	// RequestIDHeader carries the id in and out.
	RequestIDHeader = "X-Request-ID"
)

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	logger    *applog.Logger

	total        atomic.Int64
	inFlight     atomic.Int64
	clientErrors atomic.Int64
	serverErrors atomic.Int64
	totalMicros  atomic.Int64
}

// Metrics is a snapshot of request counters.
type Metrics struct {
	TotalRequests       int64
	InFlight            int64
	ClientErrors        int64
	ServerErrors        int64
	AverageResponseTime time.Duration
}

// NewMiddleware creates a trace middleware. logger may be nil.
func NewMiddleware(extractIP func(*http.Request) string, logger *applog.Logger) *Middleware {
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentHTTP})
	}
	return &Middleware{extractIP: extractIP, logger: logger}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := incomingRequestID(r)
		if requestID == "" {
			requestID = GenerateRequestID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		reqLogger := m.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		ctx = applog.NewContext(ctx, reqLogger)
		r = r.WithContext(ctx)

		reqLogger.DebugContext(ctx, "HTTP request started",
			applog.NewFields().
				WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
				WithClientIP(clientIP).
				ToSlice()...)

		m.total.Add(1)
		m.inFlight.Add(1)
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		m.inFlight.Add(-1)

		duration := time.Since(start)
		m.totalMicros.Add(duration.Microseconds())

		logLevel := slog.LevelInfo
		switch {
		case rw.statusCode >= 500:
			logLevel = slog.LevelError
			m.serverErrors.Add(1)
		case rw.statusCode >= 400:
			logLevel = slog.LevelWarn
			m.clientErrors.Add(1)
		}

		fields := applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
			WithHTTPResponse(rw.statusCode, duration.Milliseconds()).
			WithClientIP(clientIP)
		reqLogger.Log(ctx, logLevel, "HTTP request completed", append(fields.ToSlice(), "bytes", rw.bytes)...)
	})
}

// incomingRequestID accepts a caller-supplied id if it is short and printable.
func incomingRequestID(r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
	if id == "" || len(id) > 64 {
		return ""
	}
	for _, c := range id {
		if c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return id
}

// responseWriter records status and size. It forwards Flush so streamed
// responses still reach the client as they are written.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
	bytes       int
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// GenerateRequestID creates a unique request ID for tracing
func GenerateRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// GetRequestID extracts the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetMetrics returns current metrics
func (m *Middleware) GetMetrics() Metrics {
	total := m.total.Load()
	var avg time.Duration
	if total > 0 {
		avg = time.Duration(m.totalMicros.Load()/total) * time.Microsecond
	}
	return Metrics{
		TotalRequests:       total,
		InFlight:            m.inFlight.Load(),
		ClientErrors:        m.clientErrors.Load(),
		ServerErrors:        m.serverErrors.Load(),
		AverageResponseTime: avg,
	}
}
