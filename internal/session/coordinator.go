package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/persistence"
	"github.com/voxtask/voxtask/internal/services/agent"
	"github.com/voxtask/voxtask/internal/services/extraction"
	"github.com/voxtask/voxtask/internal/validation"
	"go.uber.org/zap"
)

// Synthetic utterances injected when the client UI sends confirm_tasks, so a
// button tap and a spoken confirmation drive the same conversational path.
const (
	syntheticConfirmYes = "yes, create them"
	syntheticConfirmNo  = "no, not correct"
)

// DataChannel is the session's out-of-band channel to the connected client.
type DataChannel interface {
	Send(v any) error
}

// SummaryPublisher enqueues a post-session summarization job.
type SummaryPublisher interface {
	EnqueueSummary(ctx context.Context, roomID, userID string, turns models.ConversationContext) error
}

// Coordinator owns one voice room: it consumes the room's serialized inbound
// event stream, runs extraction, brokers the confirmation state machine, and
// dispatches the conversational model's actions. All state lives in a single
// State value replaced via transitions; nothing outside Run touches it.
type Coordinator struct {
	roomID  string
	channel DataChannel
	orch    *extraction.Orchestrator
	agent   agent.Agent
	store   persistence.Store
	summary SummaryPublisher
	logger  *zap.Logger

	state   State
	inbound chan Inbound
}

// NewCoordinator creates the coordinator for one room. summary may be nil
// when post-session summarization is disabled.
func NewCoordinator(roomID string, identity models.User, credential string, channel DataChannel, orch *extraction.Orchestrator, ag agent.Agent, store persistence.Store, summary SummaryPublisher, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{
		roomID:  roomID,
		channel: channel,
		orch:    orch,
		agent:   ag,
		store:   store,
		summary: summary,
		logger:  log.With(zap.String("room_id", roomID)),
		state:   NewState(identity, credential),
		inbound: make(chan Inbound, 16),
	}
}

// Deliver hands one inbound message to the session's event loop. Messages
// arriving after the room closed are dropped.
func (c *Coordinator) Deliver(msg Inbound) {
	select {
	case c.inbound <- msg:
	default:
		c.logger.Warn("inbound_message_dropped", zap.String("reason", "event_queue_full"))
	}
}

// Run consumes the room's event stream until the context is cancelled. Events
// are processed one at a time; there is no concurrency within a session.
func (c *Coordinator) Run(ctx context.Context) {
	c.logger.Info("session_started", zap.String("user_id", c.state.Identity.ID))

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case msg := <-c.inbound:
			switch m := msg.(type) {
			case InboundTranscript:
				c.handleTranscript(ctx, m)
			case InboundConfirm:
				c.handleConfirm(ctx, m)
			}
		}
	}
}

// shutdown discards all session state. Any pending confirmation is dropped
// without a persistence call; the conversation is handed to the summary
// worker if one is configured.
func (c *Coordinator) shutdown() {
	if c.state.Pending != nil {
		c.logger.Info("pending_confirmation_discarded",
			zap.Int("draft_count", len(c.state.Pending.Drafts)),
		)
	}

	if c.summary != nil && len(c.state.History) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.summary.EnqueueSummary(ctx, c.roomID, c.state.Identity.ID, c.state.History); err != nil {
			c.logger.Warn("summary_enqueue_failed", zap.Error(err))
		}
	}

	c.state = NewState(c.state.Identity, "")
	c.logger.Info("session_closed")
}

func (c *Coordinator) handleTranscript(ctx context.Context, m InboundTranscript) {
	// Mirror captions back regardless of finality.
	c.send(TranscriptEvent{Type: typeTranscript, Text: m.Text, IsFinal: m.IsFinal})

	if !m.IsFinal {
		return
	}
	text := validation.SanitizeText(m.Text)
	if text == "" {
		return
	}

	if c.state.Phase == PhaseAwaitingConfirmation {
		// A spoken reply to a presented draft set is a conversational
		// turn; the model decides whether it confirms, rejects, or asks
		// for changes.
		c.state = c.state.AppendTurn(models.RoleUser, text)
		c.agentTurn(ctx)
		return
	}

	c.extract(ctx, text)
}

// extract runs the orchestrator on a final utterance and routes the outcome.
func (c *Coordinator) extract(ctx context.Context, text string) {
	history := c.state.History
	c.state = c.state.AppendTurn(models.RoleUser, text).WithPhase(PhaseExtracting)

	outcome := c.orch.Extract(ctx, text, history)

	switch outcome.Kind {
	case models.OutcomeClarification:
		c.state = c.state.AppendTurn(models.RoleAssistant, outcome.Question).WithPhase(PhaseListening)
		c.send(AgentMessageEvent{Type: typeAgentMessage, Text: outcome.Question})

	case models.OutcomeDrafts:
		c.state = c.state.AppendTurn(models.RoleUser, extractionReport(outcome))
		reply := c.agentTurn(ctx)

		// The model is expected to present the drafts itself. If it did
		// not (error, or it chose not to call the tool), present them
		// anyway so the user's intent is not lost.
		if !c.presentedFrom(reply, outcome) {
			c.dispatch(ctx, agent.PresentDrafts{Drafts: outcome.Drafts, Summary: outcome.Summary})
		}
	}
}

// presentedFrom reports whether the reply already presented a draft set.
func (c *Coordinator) presentedFrom(reply *agent.Reply, outcome models.ExtractionOutcome) bool {
	if reply == nil {
		return false
	}
	for _, action := range reply.Actions {
		if _, ok := action.(agent.PresentDrafts); ok {
			return true
		}
	}
	return false
}

func (c *Coordinator) handleConfirm(ctx context.Context, m InboundConfirm) {
	if !m.Confirmed {
		// Rejection is deterministic: discard with no external call,
		// then let the model acknowledge.
		c.state = c.state.ClearPending().AppendTurn(models.RoleUser, syntheticConfirmNo)
		c.agentTurn(ctx)
		return
	}

	if c.state.Pending == nil {
		c.logger.Warn("confirm_without_pending_drafts")
		return
	}

	// Confirmation is of the currently displayed draft set. If the user
	// edited drafts before confirming, the edited set replaces what was
	// originally presented.
	if len(m.Tasks) > 0 {
		pending := *c.state.Pending
		pending.Drafts = m.Tasks
		c.state = c.state.WithPending(&pending)
	}

	c.state = c.state.AppendTurn(models.RoleUser, syntheticConfirmYes)
	c.persistPending(ctx)
	c.state = c.state.ClearPending()
	c.agentTurn(ctx)
}

// persistPending persists the confirmed pending set, one result per draft.
// The set is read from session state, not from the model, so whatever the
// user confirmed on screen is exactly what gets saved.
func (c *Coordinator) persistPending(ctx context.Context) {
	drafts := make([]models.TaskDraft, 0, len(c.state.Pending.Drafts))
	for _, draft := range c.state.Pending.Drafts {
		if err := validation.ValidateDraft(&draft); err != nil {
			c.logger.Warn("persist_rejected_invalid_draft", zap.String("title", draft.Title), zap.Error(err))
			c.send(TaskFailedEvent{Type: typeTaskFailed, Task: draft, Error: err.Error()})
			c.state = c.state.AppendTurn(models.RoleUser,
				fmt.Sprintf("[session] Could not save %q: %v.", draft.Title, err))
			continue
		}
		drafts = append(drafts, draft)
	}
	if len(drafts) == 0 {
		return
	}

	for _, res := range persistence.Persist(ctx, c.store, c.state.Identity.ID, c.state.Credential, drafts) {
		switch {
		case errors.Is(res.Err, persistence.ErrUnauthenticated):
			c.logger.Warn("persist_unauthenticated", zap.String("title", res.Draft.Title))
			c.send(TaskFailedEvent{Type: typeTaskFailed, Task: res.Draft, Error: "unauthenticated"})
			c.state = c.state.AppendTurn(models.RoleUser,
				fmt.Sprintf("[session] Could not save %q: the session is unauthenticated. Ask the user to sign in.", res.Draft.Title))

		case res.Err != nil:
			c.logger.Warn("persist_failed", zap.String("title", res.Draft.Title), zap.Error(res.Err))
			c.send(TaskFailedEvent{Type: typeTaskFailed, Task: res.Draft, Error: res.Err.Error()})
			c.state = c.state.AppendTurn(models.RoleUser,
				fmt.Sprintf("[session] Failed to save %q: %v. You may retry it.", res.Draft.Title, res.Err))

		default:
			c.send(TaskCreatedEvent{Type: typeTaskCreated, Task: res.Task})
			c.state = c.state.AppendTurn(models.RoleUser,
				fmt.Sprintf("[session] Saved %q.", res.Task.Title))
			c.logger.Info("task_persisted", zap.String("task_id", res.Task.ID.String()), zap.String("title", res.Task.Title))
		}
	}
}

// agentTurn runs one conversational model turn over the session history and
// dispatches any actions the model invoked.
func (c *Coordinator) agentTurn(ctx context.Context) *agent.Reply {
	reply, err := c.agent.Respond(ctx, c.state.History)
	if err != nil {
		c.logger.Warn("agent_turn_failed", zap.Error(err))
		return nil
	}

	if reply.Text != "" {
		c.state = c.state.AppendTurn(models.RoleAssistant, reply.Text)
		c.send(AgentMessageEvent{Type: typeAgentMessage, Text: reply.Text})
	}

	persisted := false
	for _, action := range reply.Actions {
		c.dispatch(ctx, action)
		if _, ok := action.(agent.PersistDraft); ok {
			persisted = true
		}
	}

	// Once the model has acted on a confirmed set, the confirmation cycle
	// is over and the session listens again.
	if persisted {
		c.state = c.state.ClearPending()
	}

	return reply
}

// dispatch executes one model-invoked action. The switch is exhaustive over
// the closed action union.
func (c *Coordinator) dispatch(ctx context.Context, action agent.Action) {
	switch a := action.(type) {
	case agent.PresentDrafts:
		pending := &PendingConfirmation{
			ID:          uuid.New(),
			Drafts:      a.Drafts,
			Summary:     a.Summary,
			PresentedAt: time.Now(),
		}
		c.state = c.state.WithPending(pending)
		c.send(TasksExtractedEvent{Type: typeTasksExtracted, Tasks: a.Drafts, Summary: a.Summary})
		c.state = c.state.AppendTurn(models.RoleUser,
			fmt.Sprintf("[session] Presented %d draft(s) to the user for confirmation.", len(a.Drafts)))
		c.logger.Info("drafts_presented", zap.Int("draft_count", len(a.Drafts)))

	case agent.PersistDraft:
		c.persistDraft(ctx, a.Draft)

	default:
		c.logger.Error("unknown_action_type", zap.String("type", fmt.Sprintf("%T", action)))
	}
}

// persistDraft issues one persistence call for a model-invoked persist
// action, the spoken-confirmation path. Failures are surfaced back to the
// model and the client, never silently dropped; an unauthenticated session
// fails fast here rather than persisting as the wrong user.
func (c *Coordinator) persistDraft(ctx context.Context, draft models.TaskDraft) {
	if c.state.Pending == nil {
		c.logger.Warn("persist_without_presented_drafts", zap.String("title", draft.Title))
		c.state = c.state.AppendTurn(models.RoleUser,
			"[session] Cannot persist: no drafts are awaiting confirmation.")
		return
	}

	if err := validation.ValidateDraft(&draft); err != nil {
		c.logger.Warn("persist_rejected_invalid_draft", zap.String("title", draft.Title), zap.Error(err))
		c.send(TaskFailedEvent{Type: typeTaskFailed, Task: draft, Error: err.Error()})
		c.state = c.state.AppendTurn(models.RoleUser,
			fmt.Sprintf("[session] Could not save %q: %v.", draft.Title, err))
		return
	}

	if c.state.Credential == "" {
		c.logger.Warn("persist_unauthenticated", zap.String("title", draft.Title))
		c.send(TaskFailedEvent{Type: typeTaskFailed, Task: draft, Error: "unauthenticated"})
		c.state = c.state.AppendTurn(models.RoleUser,
			fmt.Sprintf("[session] Could not save %q: the session is unauthenticated. Ask the user to sign in.", draft.Title))
		return
	}

	task, err := c.store.CreateTask(ctx, models.TaskFromDraft(draft, c.state.Identity.ID), c.state.Credential)
	if err != nil {
		c.logger.Warn("persist_failed", zap.String("title", draft.Title), zap.Error(err))
		c.send(TaskFailedEvent{Type: typeTaskFailed, Task: draft, Error: err.Error()})
		c.state = c.state.AppendTurn(models.RoleUser,
			fmt.Sprintf("[session] Failed to save %q: %v. You may retry it.", draft.Title, err))
		return
	}

	c.send(TaskCreatedEvent{Type: typeTaskCreated, Task: task})
	c.state = c.state.AppendTurn(models.RoleUser,
		fmt.Sprintf("[session] Saved %q.", task.Title))
	c.logger.Info("task_persisted", zap.String("task_id", task.ID.String()), zap.String("title", task.Title))
}

func (c *Coordinator) send(v any) {
	if err := c.channel.Send(v); err != nil {
		c.logger.Warn("data_channel_send_failed", zap.Error(err))
	}
}

// extractionReport packages an extraction outcome as a session-originated
// turn so the model can restate the drafts and ask for confirmation.
func extractionReport(outcome models.ExtractionOutcome) string {
	payload, err := json.Marshal(outcome.Drafts)
	if err != nil {
		payload = []byte("[]")
	}
	report := fmt.Sprintf("[session] Extracted %d task draft(s): %s", len(outcome.Drafts), payload)
	if outcome.Summary != "" {
		report += " Summary: " + outcome.Summary
	}
	report += " Present them to the user and ask for confirmation."
	return report
}
