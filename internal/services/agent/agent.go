// Package agent drives the conversational model for real-time sessions. The
// model decides when to invoke the session's callable actions; the actions
// themselves form a closed, typed union so dispatch stays exhaustive.
package agent

import (
	"context"

	"github.com/voxtask/voxtask/internal/models"
)

// Action is one model-invoked session operation. The set is closed: adding a
// variant means updating every dispatcher's type switch.
type Action interface {
	isAction()
}

// PresentDrafts asks the session to show a draft set to the user and hold it
// for confirmation.
type PresentDrafts struct {
	Drafts  []models.TaskDraft `json:"tasks"`
	Summary string             `json:"summary,omitempty"`
}

func (PresentDrafts) isAction() {}

// PersistDraft asks the session to persist one confirmed draft.
type PersistDraft struct {
	Draft models.TaskDraft `json:"task"`
}

func (PersistDraft) isAction() {}

// Reply is one conversational turn from the model: text to speak or send to
// the user, plus any actions the model chose to invoke.
type Reply struct {
	Text    string
	Actions []Action
}

// Agent is the conversational model boundary for real-time sessions.
type Agent interface {
	Respond(ctx context.Context, turns models.ConversationContext) (*Reply, error)
}
