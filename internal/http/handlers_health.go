package http

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks the persistence backend when a probe is configured.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			logFor(r).WarnContext(r.Context(), "Readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics prints counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	st := s.svc.Store()

	sessions := 0
	if s.advisor != nil {
		sessions = s.advisor.Sessions().Size()
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	metrics := []struct {
		name  string
		value any
	}{
		{"saralfin_http_requests_total", tm.TotalRequests},
		{"saralfin_http_requests_in_flight", tm.InFlight},
		{"saralfin_http_client_errors_total", tm.ClientErrors},
		{"saralfin_http_server_errors_total", tm.ServerErrors},
		{"saralfin_http_response_time_avg_seconds", tm.AverageResponseTime.Seconds()},
		{"saralfin_ratelimit_rejected_total", rl.Rejected},
		{"saralfin_ratelimit_clients", rl.ClientCount},
		{"saralfin_security_suspicious_requests_total", s.detector.SuspiciousRequests()},
		{"saralfin_store_transactions", len(st.Transactions())},
		{"saralfin_store_revision", st.Revision()},
		{"saralfin_chart_renders_total", s.charts.renders.Load()},
		{"saralfin_chart_cache_entries", s.charts.lru.Size()},
		{"saralfin_advisor_sessions", sessions},
	}
	for _, m := range metrics {
		fmt.Fprintf(w, "%s %v\n", m.name, m.value)
	}
}
