package queue

import (
	"time"

	"github.com/google/uuid"
	"github.com/voxtask/voxtask/internal/models"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeSessionSummary summarizes a finished voice session's conversation.
	JobTypeSessionSummary JobType = "session_summary"
)

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID                  `json:"id"`
	Type       JobType                    `json:"type"`
	RoomID     string                     `json:"room_id"`
	UserID     string                     `json:"user_id"`
	Turns      models.ConversationContext `json:"turns,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	RetryCount int                        `json:"retry_count"`
	MaxRetries int                        `json:"max_retries"`
}

// NewSessionSummaryJob creates a summarization job for one finished session.
func NewSessionSummaryJob(roomID, userID string, turns models.ConversationContext) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       JobTypeSessionSummary,
		RoomID:     roomID,
		UserID:     userID,
		Turns:      turns,
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
