package queue

import (
	"context"

	"github.com/voxtask/voxtask/internal/models"
)

// SummaryPublisher adapts a JobQueue to the session layer's publisher
// contract, so sessions enqueue summarization work without knowing the
// broker.
type SummaryPublisher struct {
	queue JobQueue
}

// NewSummaryPublisher wraps a JobQueue.
func NewSummaryPublisher(q JobQueue) *SummaryPublisher {
	return &SummaryPublisher{queue: q}
}

// EnqueueSummary publishes one session-summary job.
func (p *SummaryPublisher) EnqueueSummary(ctx context.Context, roomID, userID string, turns models.ConversationContext) error {
	return p.queue.Enqueue(ctx, NewSessionSummaryJob(roomID, userID, turns))
}
