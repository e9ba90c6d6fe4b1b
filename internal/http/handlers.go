package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"finance/internal/middleware/trace"
	"finance/internal/store"
)

func getRequestID(r *http.Request) string {
	return trace.GetRequestID(r.Context())
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.metrics.started).Round(time.Second).String(),
	})
}

// handleReady pings the store when it supports it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if p, ok := s.svc.(store.Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	} else {
		checks["store"] = "ok"
	}

	if s.rateLimiter != nil {
		checks["rate_limiter"] = map[string]any{
			"active_clients": s.rateLimiter.ActiveClients(),
			"status":         "ok",
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	traceMetrics := s.traceMW.GetMetrics()
	metric := func(name, help, typ string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, typ, name, value)
	}

	metric("http_requests_total", "Total number of HTTP requests", "counter", traceMetrics.TotalRequests)
	metric("http_server_errors_total", "Responses with a 5xx status", "counter", traceMetrics.ServerErrors)

	fmt.Fprintf(w, "# HELP transactions_written_total Successful transaction writes\n")
	fmt.Fprintf(w, "# TYPE transactions_written_total counter\n")
	fmt.Fprintf(w, "transactions_written_total{op=\"create\"} %d\n", atomic.LoadInt64(&s.metrics.created))
	fmt.Fprintf(w, "transactions_written_total{op=\"update\"} %d\n", atomic.LoadInt64(&s.metrics.updated))
	fmt.Fprintf(w, "transactions_written_total{op=\"delete\"} %d\n\n", atomic.LoadInt64(&s.metrics.deleted))

	if s.listCache != nil {
		metric("cache_entries", "Current list cache entries", "gauge", s.listCache.Size())
	}
	if s.rateLimiter != nil {
		rl := s.rateLimiter.GetMetrics()
		metric("rate_limit_hits_total", "Requests rejected by the rate limiter", "counter", rl.TotalHits)
		metric("active_rate_limit_clients", "Currently tracked rate limit clients", "gauge", rl.ClientCount)
	}
	metric("suspicious_requests_total", "Requests flagged by the detector", "counter", s.detector.SuspiciousRequests())
	metric("uptime_seconds", "Application uptime in seconds", "gauge", int64(time.Since(s.metrics.started).Seconds()))
}
