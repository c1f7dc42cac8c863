// Package persistence wraps the external task store behind a narrow
// interface and implements the confirmation bridge's per-draft persistence
// contract.
package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/voxtask/voxtask/internal/models"
)

// ErrUnauthenticated is returned when a persistence call is attempted
// without a bound credential. It is surfaced explicitly so the user learns
// why nothing was saved, distinct from a generic failure.
var ErrUnauthenticated = errors.New("no credential bound to session")

// Store is the persistence collaborator boundary: one task payload plus an
// auth credential in, the created record or an error out.
type Store interface {
	CreateTask(ctx context.Context, task *models.Task, credential string) (*models.Task, error)
	Ping(ctx context.Context) error
}

// Result reports the persistence outcome for exactly one draft. Partial
// failure across a confirmed set is reported per draft, never aggregated.
type Result struct {
	Draft models.TaskDraft
	Task  *models.Task
	Err   error
}

// Persist issues one persistence call per confirmed draft and returns one
// result per draft, in draft order. Calls run concurrently; each result is
// attributable to its originating draft. Failures do not roll back drafts
// that succeeded.
func Persist(ctx context.Context, store Store, userID, credential string, drafts []models.TaskDraft) []Result {
	results := make([]Result, len(drafts))

	if credential == "" {
		for i, draft := range drafts {
			results[i] = Result{Draft: draft, Err: ErrUnauthenticated}
		}
		return results
	}

	var wg sync.WaitGroup
	for i, draft := range drafts {
		wg.Add(1)
		go func(i int, draft models.TaskDraft) {
			defer wg.Done()
			task, err := store.CreateTask(ctx, models.TaskFromDraft(draft, userID), credential)
			results[i] = Result{Draft: draft, Task: task, Err: err}
		}(i, draft)
	}
	wg.Wait()

	return results
}
