package http

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

type appMetrics struct {
	startedAt      time.Time
	sessionsIssued int64
	recordsCreated int64
	recordsDeleted int64
}

// handleHealth performs a basic liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewResponse().JSON(map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    s.now().Sub(s.metrics.startedAt).Round(time.Second).String(),
	}).Write(w)
}

// handleReady checks the backend and reports cache and limiter state.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if err := s.ping(ctx); err != nil {
		checks["backend"] = fmt.Sprintf("failed: %v", err)
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["backend"] = "ok"
	}

	checks["sessions"] = map[string]any{
		"gates":  s.sessions.gates.Size(),
		"stores": s.sessions.stores.Size(),
		"status": "ok",
	}
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.limiter.ActiveClients(),
		"status":         "ok",
	}

	NewResponse().Status(httpStatus).JSON(map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	}).Write(w)
}

// handleMetrics writes application and security counters in Prometheus text
// format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	security := s.detector.GetMetrics()
	limits := s.limiter.GetMetrics()
	traffic := s.tracer.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n\n", name, help, name, name, v)
	}
	gauge := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %d\n\n", name, help, name, name, v)
	}

	counter("http_requests_total", "Total number of HTTP requests", traffic.TotalRequests)
	counter("http_server_errors_total", "Responses with a 5xx status", traffic.ServerErrors)
	gauge("http_response_time_avg_microseconds", "Average response time", traffic.AverageResponseTime)
	counter("sessions_issued_total", "Session tokens issued", atomic.LoadInt64(&s.metrics.sessionsIssued))
	counter("records_created_total", "Records accepted for creation", atomic.LoadInt64(&s.metrics.recordsCreated))
	counter("records_deleted_total", "Records deleted", atomic.LoadInt64(&s.metrics.recordsDeleted))

	fmt.Fprintf(w, "# HELP session_cache_entries Current session cache entries\n")
	fmt.Fprintf(w, "# TYPE session_cache_entries gauge\n")
	fmt.Fprintf(w, "session_cache_entries{type=\"gate\"} %d\n", s.sessions.gates.Size())
	fmt.Fprintf(w, "session_cache_entries{type=\"store\"} %d\n\n", s.sessions.stores.Size())

	counter("rate_limit_hits_total", "Total rate limit hits", limits.TotalHits)
	gauge("active_rate_limit_clients", "Currently tracked rate limit clients", limits.ClientCount)
	counter("suspicious_requests_total", "Total suspicious requests detected", security.SuspiciousRequests)
	counter("invalid_ip_attempts_total", "Forwarded headers carrying an invalid IP", security.InvalidIPAttempts)

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", s.now().Sub(s.metrics.startedAt).Seconds())
}
