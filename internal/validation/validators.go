package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/voxtask/voxtask/internal/models"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("task_priority", validatePriority); err != nil {
		panic(fmt.Sprintf("failed to register task_priority validator: %v", err))
	}
	if err := Validate.RegisterValidation("task_status", validateStatus); err != nil {
		panic(fmt.Sprintf("failed to register task_status validator: %v", err))
	}
}

// validatePriority validates that a string is a valid Priority enum value
func validatePriority(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.Priority(value) {
	case models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
		return true
	default:
		return false
	}
}

// validateStatus validates that a string is a valid TaskStatus enum value
func validateStatus(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	switch models.TaskStatus(value) {
	case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted:
		return true
	default:
		return false
	}
}

// SanitizeText trims whitespace and removes control characters except newline and tab.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}

// ValidateDraft checks that a normalized draft satisfies the invariants the
// normalizer guarantees. Used at trust boundaries before presenting drafts.
func ValidateDraft(draft *models.TaskDraft) error {
	if strings.TrimSpace(draft.Title) == "" {
		return fmt.Errorf("draft title must not be empty")
	}
	if len(draft.Tags) == 0 {
		return fmt.Errorf("draft must carry at least one tag")
	}
	if err := Validate.Var(string(draft.Priority), "task_priority"); err != nil {
		return fmt.Errorf("invalid priority %q", draft.Priority)
	}
	if err := Validate.Var(string(draft.Status), "task_status"); err != nil {
		return fmt.Errorf("invalid status %q", draft.Status)
	}
	return nil
}
