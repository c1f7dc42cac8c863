package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
)

type pingStore struct {
	err error
}

func (p *pingStore) CreateTask(ctx context.Context, task *models.Task, credential string) (*models.Task, error) {
	return task, nil
}

func (p *pingStore) Ping(ctx context.Context) error { return p.err }

func TestHealthCheckBasic(t *testing.T) {
	t.Parallel()

	checker := NewHealthChecker(&pingStore{}, nil)

	rec := httptest.NewRecorder()
	checker.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected healthy, got %q", resp.Status)
	}
	if resp.Checks != nil {
		t.Error("basic mode must not run dependency checks")
	}
}

func TestHealthCheckExtended(t *testing.T) {
	t.Parallel()

	t.Run("store healthy", func(t *testing.T) {
		t.Parallel()
		checker := NewHealthChecker(&pingStore{}, nil)

		rec := httptest.NewRecorder()
		checker.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp HealthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Checks["store"] != "healthy" {
			t.Errorf("expected healthy store check, got %q", resp.Checks["store"])
		}
	})

	t.Run("store unhealthy", func(t *testing.T) {
		t.Parallel()
		checker := NewHealthChecker(&pingStore{err: fmt.Errorf("connection refused")}, nil)

		rec := httptest.NewRecorder()
		checker.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/healthz?mode=extended", nil))

		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		var resp HealthResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if resp.Status != "unhealthy" {
			t.Errorf("expected unhealthy, got %q", resp.Status)
		}
	})
}
