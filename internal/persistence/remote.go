package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/voxtask/voxtask/internal/models"
	"golang.org/x/oauth2/clientcredentials"
)

// RemoteStore persists tasks through the external task API. The user's
// credential rides as the bearer token; an optional service token obtained
// via OAuth2 client credentials authenticates this service to the API.
type RemoteStore struct {
	baseURL    string
	httpClient *http.Client
	serviceCfg *clientcredentials.Config
}

// RemoteConfig configures a RemoteStore.
type RemoteConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// NewRemoteStore creates a task API client. Service-to-service auth is used
// only when token URL and client credentials are all configured.
func NewRemoteStore(cfg RemoteConfig) *RemoteStore {
	store := &RemoteStore{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	if cfg.TokenURL != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		store.serviceCfg = &clientcredentials.Config{
			TokenURL:     cfg.TokenURL,
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
		}
	}
	return store
}

type remoteErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// CreateTask posts one task payload to the task API.
func (s *RemoteStore) CreateTask(ctx context.Context, task *models.Task, credential string) (*models.Task, error) {
	if credential == "" {
		return nil, ErrUnauthenticated
	}

	body, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/tasks", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	if s.serviceCfg != nil {
		token, err := s.serviceCfg.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to obtain service token: %w", err)
		}
		req.Header.Set("X-Service-Token", token.AccessToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("task API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read task API response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("task API rejected credential: %w", ErrUnauthenticated)
	case resp.StatusCode >= 400:
		var errResp remoteErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Message != "" {
			return nil, fmt.Errorf("task API error (status %d): %s", resp.StatusCode, errResp.Message)
		}
		return nil, fmt.Errorf("task API error (status %d)", resp.StatusCode)
	}

	var created models.Task
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to decode created task: %w", err)
	}

	return &created, nil
}

// Ping checks the task API health endpoint.
func (s *RemoteStore) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("task API health check returned status %d", resp.StatusCode)
	}
	return nil
}
