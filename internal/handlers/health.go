package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/voxtask/voxtask/internal/persistence"
	"github.com/voxtask/voxtask/internal/queue"
)

// HealthChecker handles health check requests
type HealthChecker struct {
	store persistence.Store
	queue queue.JobQueue
}

// NewHealthChecker creates a new health checker. queue may be nil when the
// summarization broker is not configured.
func NewHealthChecker(store persistence.Store, q queue.JobQueue) *HealthChecker {
	return &HealthChecker{store: store, queue: q}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if r.URL.Query().Get("mode") != "extended" {
		respondJSON(w, http.StatusOK, response)
		return
	}

	checks := make(map[string]string)

	if err := h.checkStore(r.Context()); err != nil {
		response.Status = "unhealthy"
		checks["store"] = "unhealthy: " + err.Error()
	} else {
		checks["store"] = "healthy"
	}

	if h.queue != nil {
		if err := h.queue.HealthCheck(r.Context()); err != nil {
			response.Status = "unhealthy"
			checks["queue"] = "unhealthy: " + err.Error()
		} else {
			checks["queue"] = "healthy"
		}
	}

	response.Checks = checks

	statusCode := http.StatusOK
	if response.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	respondJSON(w, statusCode, response)
}

func (h *HealthChecker) checkStore(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return h.store.Ping(ctx)
}
