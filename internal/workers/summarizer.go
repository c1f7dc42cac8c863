package workers

import (
	"context"
	"fmt"

	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/queue"
	"go.uber.org/zap"
)

// SummaryService produces a plain-text summary of a conversation.
type SummaryService interface {
	Summarize(ctx context.Context, turns models.ConversationContext) (string, error)
}

// Summarizer consumes session-summary jobs and runs them through the summary
// service. Failed jobs are re-enqueued until the retry budget is exhausted,
// then dead-lettered.
type Summarizer struct {
	service SummaryService
	queue   queue.JobQueue
	logger  *zap.Logger
}

// NewSummarizer creates a summarizer worker.
func NewSummarizer(service SummaryService, q queue.JobQueue, logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{service: service, queue: q, logger: logger}
}

// ProcessJob handles one delivered message end to end, including its
// acknowledgement.
func (s *Summarizer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeSessionSummary {
		s.logger.Warn("unknown_job_type", zap.String("job_type", string(job.Type)))
		// Unknown jobs go straight to the DLQ; requeueing would loop forever.
		if err := msg.Nack(false); err != nil {
			return fmt.Errorf("failed to nack unknown job: %w", err)
		}
		return nil
	}

	if len(job.Turns) == 0 {
		s.logger.Warn("empty_session_summary_job", zap.String("job_id", job.ID.String()))
		if err := msg.Ack(); err != nil {
			return fmt.Errorf("failed to ack empty job: %w", err)
		}
		return nil
	}

	summary, err := s.service.Summarize(ctx, job.Turns)
	if err != nil {
		return s.retryOrDeadLetter(ctx, msg, job, err)
	}

	s.logger.Info("session_summarized",
		zap.String("job_id", job.ID.String()),
		zap.String("room_id", job.RoomID),
		zap.String("user_id", job.UserID),
		zap.Int("turn_count", len(job.Turns)),
		zap.Int("summary_length", len(summary)),
	)

	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack job: %w", err)
	}
	return nil
}

// retryOrDeadLetter re-enqueues a failed job with its retry count bumped, or
// dead-letters it when the budget is spent.
func (s *Summarizer) retryOrDeadLetter(ctx context.Context, msg queue.MessageInterface, job *queue.Job, cause error) error {
	if !job.CanRetry() {
		s.logger.Error("session_summary_job_dead_lettered",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(cause),
		)
		if err := msg.Nack(false); err != nil {
			return fmt.Errorf("failed to dead-letter job: %w", err)
		}
		return nil
	}

	job.IncrementRetry()
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// Could not re-enqueue; requeue the original delivery instead.
		s.logger.Error("failed_to_reenqueue_job", zap.String("job_id", job.ID.String()), zap.Error(err))
		if nackErr := msg.Nack(true); nackErr != nil {
			return fmt.Errorf("failed to requeue job: %w", nackErr)
		}
		return nil
	}

	s.logger.Warn("session_summary_job_retried",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Error(cause),
	)
	if err := msg.Ack(); err != nil {
		return fmt.Errorf("failed to ack retried job: %w", err)
	}
	return nil
}
