package models

import (
	"strings"

	"github.com/google/uuid"
)

// Priority represents how urgent a task is
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// TaskStatus represents the lifecycle status of a task
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in-progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

const (
	// DefaultTag is used when no keyword in the input matches the tag vocabulary
	DefaultTag = "general"
	// DefaultDraftTitle is used when the oracle omits a title entirely
	DefaultDraftTitle = "Untitled Task"
	// MaxTitleLength is the recommended maximum length for a draft title
	MaxTitleLength = 60
)

// TaskDraft is a candidate task produced by extraction. It has not been
// persisted; every field is fully resolved to valid enum values before the
// draft is shown to a human.
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	Tags        []string   `json:"tags"`
	DueDate     *string    `json:"dueDate,omitempty"`
	Status      TaskStatus `json:"status"`
	ProjectName *string    `json:"projectName,omitempty"`
}

// CoercePriority maps an arbitrary string onto a valid Priority.
// Unrecognized values become PriorityMedium.
func CoercePriority(value string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityLow:
		return PriorityLow
	case PriorityMedium:
		return PriorityMedium
	case PriorityHigh:
		return PriorityHigh
	case PriorityUrgent:
		return PriorityUrgent
	default:
		return PriorityMedium
	}
}

// CoerceStatus maps an arbitrary string onto a valid TaskStatus.
// Unrecognized values become TaskStatusTodo.
func CoerceStatus(value string) TaskStatus {
	switch TaskStatus(strings.ToLower(strings.TrimSpace(value))) {
	case TaskStatusTodo:
		return TaskStatusTodo
	case TaskStatusInProgress:
		return TaskStatusInProgress
	case TaskStatusCompleted:
		return TaskStatusCompleted
	default:
		return TaskStatusTodo
	}
}

// NewDraftID returns a fresh identifier for correlating a presented draft set
// with the confirmation signal that follows it.
func NewDraftID() uuid.UUID {
	return uuid.New()
}
