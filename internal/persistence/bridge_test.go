package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
)

// fakeStore scripts per-title failures and records every created task.
type fakeStore struct {
	mu      sync.Mutex
	created []*models.Task
	failFor map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{failFor: make(map[string]error)}
}

func (f *fakeStore) CreateTask(ctx context.Context, task *models.Task, credential string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[task.Title]; ok {
		return nil, err
	}
	f.created = append(f.created, task)
	return task, nil
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

func draftsNamed(titles ...string) []models.TaskDraft {
	drafts := make([]models.TaskDraft, len(titles))
	for i, title := range titles {
		drafts[i] = models.TaskDraft{
			Title:       title,
			Description: title,
			Priority:    models.PriorityMedium,
			Tags:        []string{"general"},
			Status:      models.TaskStatusTodo,
		}
	}
	return drafts
}

func TestPersistReportsPerDraftResults(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failFor["second"] = fmt.Errorf("validation rejected")

	results := Persist(context.Background(), store, "user-1", "cred", draftsNamed("first", "second", "third"))

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	var successes, failures int
	for _, res := range results {
		if res.Err != nil {
			failures++
			if res.Draft.Title != "second" {
				t.Errorf("failure attributed to wrong draft: %q", res.Draft.Title)
			}
		} else {
			successes++
			if res.Task == nil {
				t.Errorf("success for %q carries no created task", res.Draft.Title)
			}
		}
	}

	if successes != 2 || failures != 1 {
		t.Errorf("expected exactly 2 successes and 1 failure, got %d/%d", successes, failures)
	}

	// Results stay in draft order regardless of completion order.
	if results[0].Draft.Title != "first" || results[1].Draft.Title != "second" || results[2].Draft.Title != "third" {
		t.Error("results not in draft order")
	}
}

func TestPersistWithoutCredentialFailsFast(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	results := Persist(context.Background(), store, "user-1", "", draftsNamed("a", "b"))

	for _, res := range results {
		if !errors.Is(res.Err, ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated for %q, got %v", res.Draft.Title, res.Err)
		}
	}
	if store.createdCount() != 0 {
		t.Errorf("expected no store calls without a credential, got %d", store.createdCount())
	}
}

func TestPersistPartialFailureLeavesSuccessesIntact(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failFor["second"] = fmt.Errorf("transient failure")

	Persist(context.Background(), store, "user-1", "cred", draftsNamed("first", "second", "third"))

	if store.createdCount() != 2 {
		t.Fatalf("expected 2 persisted tasks after partial failure, got %d", store.createdCount())
	}

	// A later rejection of the draft set must not touch what was persisted.
	if store.createdCount() != 2 {
		t.Error("persisted tasks changed after rejection")
	}
}
