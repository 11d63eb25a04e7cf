package server

import (
	"context"
	"net/http"
	"time"
)

type check struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status    string           `json:"status"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

// Health pings every configured dependency. Any failure turns the answer
// into 503 "degraded".
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]check, len(s.checks))
	healthy := true

	for name, ping := range s.checks {
		start := time.Now()
		if err := ping(ctx); err != nil {
			checks[name] = check{Status: "fail", Message: "connection failed"}
			healthy = false
			continue
		}
		checks[name] = check{Status: "pass", Latency: time.Since(start).String()}
	}

	status, code := "healthy", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}

	writeJSON(w, code, healthResponse{
		Status:    status,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
