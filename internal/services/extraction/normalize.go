package extraction

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/voxtask/voxtask/internal/models"
)

// oracleResponse is the raw, untrusted JSON shape the oracle is asked to emit.
type oracleResponse struct {
	Tasks                 []rawTask `json:"tasks"`
	Summary               string    `json:"summary"`
	NeedsClarification    bool      `json:"needs_clarification"`
	ClarificationQuestion string    `json:"clarification_question"`
}

// rawTask mirrors one unvalidated task item from the oracle. No field here
// escapes the normalizer unchecked.
type rawTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Tags        []string `json:"tags"`
	DueDate     *string  `json:"dueDate"`
	Status      string   `json:"status"`
	ProjectName *string  `json:"projectName"`
}

// parseOracleResponse strips any markdown code-fence wrapper the oracle may
// have emitted and parses the JSON payload. It tolerates stray prose around
// the object by slicing to the outermost braces before giving up.
func parseOracleResponse(content string) (*oracleResponse, error) {
	raw := stripCodeFences(content)

	var resp oracleResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		start := strings.Index(raw, "{")
		end := strings.LastIndex(raw, "}")
		if start == -1 || end <= start {
			return nil, fmt.Errorf("failed to parse oracle response: %w", err)
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
			return nil, fmt.Errorf("failed to parse oracle response: %w", err)
		}
	}

	return &resp, nil
}

// stripCodeFences removes a leading/trailing markdown fence such as
// ```json ... ``` without touching fences inside the payload.
func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		// Drop the language tag on the opening fence line.
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// normalizeDraft coerces one raw oracle task into a fully resolved TaskDraft.
// Idempotent: normalizing an already-normalized draft changes nothing.
func normalizeDraft(raw rawTask) models.TaskDraft {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = models.DefaultDraftTitle
	}

	description := strings.TrimSpace(raw.Description)
	if description == "" {
		description = title
	}

	tags := make([]string, 0, len(raw.Tags))
	for _, tag := range raw.Tags {
		if t := strings.TrimSpace(tag); t != "" {
			tags = append(tags, t)
		}
	}
	if len(tags) == 0 {
		tags = []string{models.DefaultTag}
	}

	return models.TaskDraft{
		Title:       title,
		Description: description,
		Priority:    models.CoercePriority(raw.Priority),
		Tags:        tags,
		DueDate:     raw.DueDate,
		Status:      models.CoerceStatus(raw.Status),
		ProjectName: raw.ProjectName,
	}
}

// normalizeDrafts normalizes every task item in an oracle response.
func normalizeDrafts(raws []rawTask) []models.TaskDraft {
	drafts := make([]models.TaskDraft, 0, len(raws))
	for _, raw := range raws {
		drafts = append(drafts, normalizeDraft(raw))
	}
	return drafts
}
