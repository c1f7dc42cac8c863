package models

import (
	"time"

	"github.com/google/uuid"
)

// Task is a persisted task record returned by the persistence collaborator.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	DueDate     *string    `json:"dueDate,omitempty"`
	Status      TaskStatus `json:"status"`
	ProjectName *string    `json:"projectName,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskFromDraft builds the task payload persisted for a confirmed draft.
func TaskFromDraft(draft TaskDraft, userID string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       draft.Title,
		Description: draft.Description,
		Priority:    draft.Priority,
		Tags:        draft.Tags,
		DueDate:     draft.DueDate,
		Status:      draft.Status,
		ProjectName: draft.ProjectName,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
