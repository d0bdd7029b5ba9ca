package routes

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"slidepack/logger"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Version          string    `json:"version"`
	GoVersion        string    `json:"go_version"`
	Uptime           string    `json:"uptime"`
	StartTime        string    `json:"start_time"`
	PendingDeletions int       `json:"pending_deletions"`
	Error            string    `json:"error,omitempty"`
}

// formatUptime formats a duration into days, hours, minutes, seconds
func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
}

// HealthHandler reports liveness and whether the ledger answers.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:           "healthy",
		Timestamp:        time.Now(),
		Version:          version,
		GoVersion:        runtime.Version(),
		Uptime:           formatUptime(time.Since(s.started)),
		StartTime:        s.started.Format("2006-01-02 15:04:05 MST"),
		PendingDeletions: len(s.Scheduler.Pending()),
	}

	status := http.StatusOK
	if err := s.Ledger.CheckHealth(); err != nil {
		logger.Errorf("Health check failed: %v", err)
		response.Status = "unhealthy"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}
