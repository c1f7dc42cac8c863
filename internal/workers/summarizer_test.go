package workers

import (
	"context"
	"fmt"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/queue"
	"go.uber.org/zap"
)

type fakeMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}
func (m *fakeMessage) GetJob() *queue.Job { return m.job }

type fakeJobQueue struct {
	enqueued []*queue.Job
	err      error
}

func (q *fakeJobQueue) Enqueue(ctx context.Context, job *queue.Job) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, job)
	return nil
}

func (q *fakeJobQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, nil
}
func (q *fakeJobQueue) Close() error                          { return nil }
func (q *fakeJobQueue) HealthCheck(ctx context.Context) error { return nil }

type fakeSummaryService struct {
	summary string
	err     error
	calls   int
}

func (s *fakeSummaryService) Summarize(ctx context.Context, turns models.ConversationContext) (string, error) {
	s.calls++
	return s.summary, s.err
}

func sessionTurns() models.ConversationContext {
	return models.ConversationContext{
		{Role: models.RoleUser, Content: "fix the login bug"},
		{Role: models.RoleAssistant, Content: "Created one task."},
	}
}

func TestProcessJobSuccess(t *testing.T) {
	t.Parallel()

	service := &fakeSummaryService{summary: "User asked for one fix."}
	jobQueue := &fakeJobQueue{}
	worker := NewSummarizer(service, jobQueue, zap.NewNop())

	msg := &fakeMessage{job: queue.NewSessionSummaryJob("room-1", "user-1", sessionTurns())}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !msg.acked || msg.nacked {
		t.Error("expected successful job acked")
	}
	if service.calls != 1 {
		t.Errorf("expected one summarize call, got %d", service.calls)
	}
}

func TestProcessJobRetriesOnFailure(t *testing.T) {
	t.Parallel()

	service := &fakeSummaryService{err: fmt.Errorf("oracle unavailable")}
	jobQueue := &fakeJobQueue{}
	worker := NewSummarizer(service, jobQueue, zap.NewNop())

	msg := &fakeMessage{job: queue.NewSessionSummaryJob("room-1", "user-1", sessionTurns())}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("expected job re-enqueued once, got %d", len(jobQueue.enqueued))
	}
	if jobQueue.enqueued[0].RetryCount != 1 {
		t.Errorf("expected retry count bumped, got %d", jobQueue.enqueued[0].RetryCount)
	}
	if !msg.acked {
		t.Error("expected original delivery acked after re-enqueue")
	}
}

func TestProcessJobDeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	service := &fakeSummaryService{err: fmt.Errorf("oracle unavailable")}
	jobQueue := &fakeJobQueue{}
	worker := NewSummarizer(service, jobQueue, zap.NewNop())

	job := queue.NewSessionSummaryJob("room-1", "user-1", sessionTurns())
	job.RetryCount = job.MaxRetries

	msg := &fakeMessage{job: job}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !msg.nacked || msg.requeued {
		t.Error("expected exhausted job nacked without requeue")
	}
	if len(jobQueue.enqueued) != 0 {
		t.Errorf("expected no re-enqueue, got %d", len(jobQueue.enqueued))
	}
}

func TestProcessJobSkipsEmptyConversation(t *testing.T) {
	t.Parallel()

	service := &fakeSummaryService{}
	worker := NewSummarizer(service, &fakeJobQueue{}, zap.NewNop())

	msg := &fakeMessage{job: queue.NewSessionSummaryJob("room-1", "user-1", nil)}
	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if service.calls != 0 {
		t.Error("empty conversation must not reach the summary service")
	}
	if !msg.acked {
		t.Error("expected empty job acked")
	}
}
