package extraction

import (
	"reflect"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
)

func TestParseOracleResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		content   string
		wantErr   bool
		wantTasks int
	}{
		{
			name:      "plain json",
			content:   `{"tasks":[{"title":"Fix login bug"}]}`,
			wantTasks: 1,
		},
		{
			name:      "fenced json with language tag",
			content:   "```json\n{\"tasks\":[{\"title\":\"Fix login bug\"},{\"title\":\"Ship release\"}]}\n```",
			wantTasks: 2,
		},
		{
			name:      "fenced json without language tag",
			content:   "```\n{\"tasks\":[]}\n```",
			wantTasks: 0,
		},
		{
			name:      "json surrounded by prose",
			content:   "Sure, here you go: {\"tasks\":[{\"title\":\"Write docs\"}]} Hope that helps!",
			wantTasks: 1,
		},
		{
			name:    "not json at all",
			content: "not json",
			wantErr: true,
		},
		{
			name:    "empty content",
			content: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp, err := parseOracleResponse(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Error("expected parse error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if len(resp.Tasks) != tt.wantTasks {
				t.Errorf("expected %d tasks, got %d", tt.wantTasks, len(resp.Tasks))
			}
		})
	}
}

func TestNormalizeDraftDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		raw      rawTask
		validate func(*testing.T, models.TaskDraft)
	}{
		{
			name: "missing title becomes Untitled Task",
			raw:  rawTask{},
			validate: func(t *testing.T, d models.TaskDraft) {
				if d.Title != models.DefaultDraftTitle {
					t.Errorf("expected default title, got %q", d.Title)
				}
			},
		},
		{
			name: "description defaults to title",
			raw:  rawTask{Title: "Fix login bug"},
			validate: func(t *testing.T, d models.TaskDraft) {
				if d.Description != "Fix login bug" {
					t.Errorf("expected description to default to title, got %q", d.Description)
				}
			},
		},
		{
			name: "unrecognized priority coerced to medium",
			raw:  rawTask{Title: "x", Priority: "SEVERE"},
			validate: func(t *testing.T, d models.TaskDraft) {
				if d.Priority != models.PriorityMedium {
					t.Errorf("expected medium priority, got %q", d.Priority)
				}
			},
		},
		{
			name: "unrecognized status coerced to todo",
			raw:  rawTask{Title: "x", Status: "doing"},
			validate: func(t *testing.T, d models.TaskDraft) {
				if d.Status != models.TaskStatusTodo {
					t.Errorf("expected todo status, got %q", d.Status)
				}
			},
		},
		{
			name: "empty and whitespace tags fall back to general",
			raw:  rawTask{Title: "x", Tags: []string{"", "   "}},
			validate: func(t *testing.T, d models.TaskDraft) {
				if len(d.Tags) != 1 || d.Tags[0] != models.DefaultTag {
					t.Errorf("expected [general], got %v", d.Tags)
				}
			},
		},
		{
			name: "tags trimmed, due date passed through",
			raw:  rawTask{Title: "x", Tags: []string{" fix ", "api"}, DueDate: stringPtr("2026-09-01")},
			validate: func(t *testing.T, d models.TaskDraft) {
				if !reflect.DeepEqual(d.Tags, []string{"fix", "api"}) {
					t.Errorf("expected trimmed tags, got %v", d.Tags)
				}
				if d.DueDate == nil || *d.DueDate != "2026-09-01" {
					t.Errorf("expected due date passed through, got %v", d.DueDate)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.validate(t, normalizeDraft(tt.raw))
		})
	}
}

// Normalization is idempotent: feeding an already-normalized draft back
// through yields an identical draft.
func TestNormalizeDraftIdempotent(t *testing.T) {
	t.Parallel()

	first := normalizeDraft(rawTask{
		Title:    "fix the login bug",
		Priority: "Urgent",
		Tags:     []string{" authentication", "fix "},
		Status:   "in-progress",
		DueDate:  stringPtr("2026-09-15"),
	})

	second := normalizeDraft(rawTask{
		Title:       first.Title,
		Description: first.Description,
		Priority:    string(first.Priority),
		Tags:        first.Tags,
		DueDate:     first.DueDate,
		Status:      string(first.Status),
		ProjectName: first.ProjectName,
	})

	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func stringPtr(s string) *string { return &s }
