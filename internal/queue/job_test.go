package queue

import (
	"encoding/json"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
)

func TestNewSessionSummaryJob(t *testing.T) {
	t.Parallel()

	turns := models.ConversationContext{
		{Role: models.RoleUser, Content: "fix the login bug"},
		{Role: models.RoleAssistant, Content: "Created one task."},
	}
	job := NewSessionSummaryJob("room-1", "user-1", turns)

	if job.Type != JobTypeSessionSummary {
		t.Errorf("expected session_summary type, got %q", job.Type)
	}
	if job.RoomID != "room-1" || job.UserID != "user-1" {
		t.Errorf("unexpected attribution %q/%q", job.RoomID, job.UserID)
	}
	if len(job.Turns) != 2 {
		t.Errorf("expected conversation carried in job, got %d turns", len(job.Turns))
	}
	if job.MaxRetries != 3 || job.RetryCount != 0 {
		t.Errorf("unexpected retry budget %d/%d", job.RetryCount, job.MaxRetries)
	}
}

func TestJobRetryBudget(t *testing.T) {
	t.Parallel()

	job := NewSessionSummaryJob("room-1", "user-1", nil)
	for i := 0; i < 3; i++ {
		if !job.CanRetry() {
			t.Fatalf("expected retry %d to be allowed", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("expected retries exhausted after max")
	}
}

func TestJobRoundTrip(t *testing.T) {
	t.Parallel()

	job := NewSessionSummaryJob("room-1", "user-1", models.ConversationContext{
		{Role: models.RoleUser, Content: "hello"},
	})

	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Job
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != job.ID || decoded.RoomID != job.RoomID || len(decoded.Turns) != 1 {
		t.Errorf("job did not survive the wire: %+v", decoded)
	}
}
