package session

import (
	"encoding/json"
	"fmt"

	"github.com/voxtask/voxtask/internal/models"
)

// Outbound data-channel message types.
const (
	typeTranscript     = "transcript"
	typeTasksExtracted = "tasks_extracted"
	typeTaskCreated    = "task_created"
	typeTaskFailed     = "task_failed"
	typeAgentMessage   = "agent_message"
)

// TranscriptEvent mirrors live captioning to the client.
type TranscriptEvent struct {
	Type    string `json:"type"`
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

// TasksExtractedEvent publishes a draft set presented for confirmation. The
// drafts go out verbatim so the client UI can render exactly what the user
// is confirming.
type TasksExtractedEvent struct {
	Type    string             `json:"type"`
	Tasks   []models.TaskDraft `json:"tasks"`
	Summary string             `json:"summary,omitempty"`
}

// TaskCreatedEvent reports one successful persistence call.
type TaskCreatedEvent struct {
	Type string       `json:"type"`
	Task *models.Task `json:"task"`
}

// TaskFailedEvent reports one failed persistence call, attributable to the
// originating draft so the client can offer a retry for just that task.
type TaskFailedEvent struct {
	Type  string           `json:"type"`
	Task  models.TaskDraft `json:"task"`
	Error string           `json:"error"`
}

// AgentMessageEvent carries the assistant's conversational reply, including
// clarification questions.
type AgentMessageEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Inbound is the typed union of messages a client may send over the data
// channel. The set is closed; ParseInbound rejects unknown types.
type Inbound interface {
	isInbound()
}

// InboundTranscript is a live speech-to-text result from the client.
type InboundTranscript struct {
	Text    string `json:"text"`
	IsFinal bool   `json:"isFinal"`
}

func (InboundTranscript) isInbound() {}

// InboundConfirm is the explicit confirmation signal from the client UI.
// Tasks optionally carries the currently displayed draft set, so edits the
// user made before confirming are what gets persisted.
type InboundConfirm struct {
	Confirmed bool               `json:"confirmed"`
	Tasks     []models.TaskDraft `json:"tasks,omitempty"`
}

func (InboundConfirm) isInbound() {}

// ParseInbound decodes one data-channel frame into the inbound union.
func ParseInbound(data []byte) (Inbound, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed data-channel message: %w", err)
	}

	switch envelope.Type {
	case typeTranscript:
		var msg InboundTranscript
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed transcript message: %w", err)
		}
		return msg, nil
	case "confirm_tasks":
		var msg InboundConfirm
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("malformed confirm_tasks message: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown data-channel message type %q", envelope.Type)
	}
}
