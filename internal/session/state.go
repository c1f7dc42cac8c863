package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/voxtask/voxtask/internal/models"
)

// Phase is the session state machine position.
type Phase string

const (
	// PhaseListening waits for the next meaningful utterance.
	PhaseListening Phase = "listening"
	// PhaseExtracting runs while the orchestrator processes a transcript.
	PhaseExtracting Phase = "extracting"
	// PhaseAwaitingConfirmation holds a presented draft set.
	PhaseAwaitingConfirmation Phase = "awaiting_confirmation"
)

// PendingConfirmation is a presented draft set awaiting a binary
// confirm/reject signal. At most one exists per session; presenting a new
// set replaces it. Never written to durable storage.
type PendingConfirmation struct {
	ID          uuid.UUID
	Drafts      []models.TaskDraft
	Summary     string
	PresentedAt time.Time
}

// State is the session's complete per-room state: who is talking, the
// credential for persistence calls, the conversation so far, and any pending
// confirmation. Transitions return new values; callbacks never mutate shared
// fields directly.
type State struct {
	Identity   models.User
	Credential string
	Phase      Phase
	Pending    *PendingConfirmation
	History    models.ConversationContext
}

// NewState builds the initial state for a freshly joined room.
func NewState(identity models.User, credential string) State {
	return State{
		Identity:   identity,
		Credential: credential,
		Phase:      PhaseListening,
	}
}

// WithPhase returns the state moved to the given phase.
func (s State) WithPhase(phase Phase) State {
	s.Phase = phase
	return s
}

// WithPending returns the state holding a new pending confirmation,
// replacing any previous one.
func (s State) WithPending(pending *PendingConfirmation) State {
	s.Pending = pending
	s.Phase = PhaseAwaitingConfirmation
	return s
}

// ClearPending returns the state with no pending confirmation, back in the
// listening phase.
func (s State) ClearPending() State {
	s.Pending = nil
	s.Phase = PhaseListening
	return s
}

// AppendTurn returns the state with one more conversation turn.
func (s State) AppendTurn(role, content string) State {
	s.History = s.History.Append(role, content)
	return s
}
