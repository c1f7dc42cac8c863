package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/services/agent"
	"github.com/voxtask/voxtask/internal/services/extraction"
	"go.uber.org/zap"
)

// fakeChannel records every outbound data-channel event.
type fakeChannel struct {
	mu     sync.Mutex
	events []any
}

func (f *fakeChannel) Send(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, v)
	return nil
}

func (f *fakeChannel) countByType(match func(any) bool) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if match(e) {
			n++
		}
	}
	return n
}

func (f *fakeChannel) tasksExtracted() []TasksExtractedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []TasksExtractedEvent
	for _, e := range f.events {
		if ev, ok := e.(TasksExtractedEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// fakeSessionStore scripts per-title failures.
type fakeSessionStore struct {
	mu      sync.Mutex
	created []*models.Task
	failFor map[string]error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{failFor: make(map[string]error)}
}

func (f *fakeSessionStore) CreateTask(ctx context.Context, task *models.Task, credential string) (*models.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[task.Title]; ok {
		return nil, err
	}
	f.created = append(f.created, task)
	return task, nil
}

func (f *fakeSessionStore) Ping(ctx context.Context) error { return nil }

func (f *fakeSessionStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

// scriptedAgent runs a function over the conversation.
type scriptedAgent struct {
	fn func(turns models.ConversationContext) *agent.Reply
}

func (s *scriptedAgent) Respond(ctx context.Context, turns models.ConversationContext) (*agent.Reply, error) {
	if s.fn == nil {
		return &agent.Reply{}, nil
	}
	return s.fn(turns), nil
}

// stubOracle implements extraction.Client with a fixed response.
type stubOracle struct {
	mu       sync.Mutex
	calls    int
	response string
	captured models.ConversationContext
}

func (s *stubOracle) Complete(ctx context.Context, req extraction.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.captured = req.Turns
	return s.response, nil
}

func (s *stubOracle) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testDrafts(titles ...string) []models.TaskDraft {
	drafts := make([]models.TaskDraft, len(titles))
	for i, title := range titles {
		drafts[i] = models.TaskDraft{
			Title:       title,
			Description: title,
			Priority:    models.PriorityMedium,
			Tags:        []string{"general"},
			Status:      models.TaskStatusTodo,
		}
	}
	return drafts
}

// confirmingAgent presents the given drafts and acknowledges confirmation
// turns with plain text.
func confirmingAgent(drafts []models.TaskDraft) *scriptedAgent {
	return &scriptedAgent{fn: func(turns models.ConversationContext) *agent.Reply {
		last := turns[len(turns)-1].Content
		if last == syntheticConfirmYes {
			return &agent.Reply{Text: "Creating them now."}
		}
		if last == syntheticConfirmNo {
			return &agent.Reply{Text: "Okay, I won't create them."}
		}
		return &agent.Reply{
			Text:    "I found some tasks. Shall I create them?",
			Actions: []agent.Action{agent.PresentDrafts{Drafts: drafts}},
		}
	}}
}

// draftsFromTurns recovers the draft set an agent would know about from the
// conversation alone, by decoding the extraction report turn.
func draftsFromTurns(t *testing.T, turns models.ConversationContext) []models.TaskDraft {
	t.Helper()
	for _, turn := range turns {
		marker := "draft(s): "
		idx := strings.Index(turn.Content, marker)
		if !strings.HasPrefix(turn.Content, "[session] Extracted") || idx < 0 {
			continue
		}
		payload := turn.Content[idx+len(marker):]
		if end := strings.LastIndex(payload, "]"); end >= 0 {
			payload = payload[:end+1]
		}
		var drafts []models.TaskDraft
		if err := json.Unmarshal([]byte(payload), &drafts); err != nil {
			t.Fatalf("failed to decode extraction report: %v", err)
		}
		return drafts
	}
	return nil
}

// conversationAgent behaves like the production model: it learns drafts only
// from conversation turns, never from coordinator internals.
func conversationAgent(t *testing.T) *scriptedAgent {
	return &scriptedAgent{fn: func(turns models.ConversationContext) *agent.Reply {
		last := turns[len(turns)-1].Content
		if last == syntheticConfirmYes {
			return &agent.Reply{Text: "Creating them now."}
		}
		if last == syntheticConfirmNo {
			return &agent.Reply{Text: "Okay, I won't create them."}
		}
		if drafts := draftsFromTurns(t, turns); drafts != nil && strings.HasPrefix(last, "[session] Extracted") {
			return &agent.Reply{
				Text:    "I found some tasks. Shall I create them?",
				Actions: []agent.Action{agent.PresentDrafts{Drafts: drafts}},
			}
		}
		return &agent.Reply{}
	}}
}

func newTestCoordinator(t *testing.T, oracle *stubOracle, ag agent.Agent, store *fakeSessionStore, credential string) (*Coordinator, *fakeChannel) {
	t.Helper()
	channel := &fakeChannel{}
	orch := extraction.NewOrchestrator(oracle, nil, 0, zap.NewNop())
	c := NewCoordinator("room-1", models.User{ID: "user-1", Name: "Test"}, credential, channel, orch, ag, store, nil, zap.NewNop())
	return c, channel
}

const oneTaskResponse = `{"tasks":[{"title":"Fix login bug","priority":"urgent","tags":["authentication","fix"],"status":"todo"}],"summary":"one fix"}`

func TestTranscriptTriggersExtractionAndPresentation(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	ag := confirmingAgent(testDrafts("Fix login bug"))
	c, channel := newTestCoordinator(t, oracle, ag, store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug, it's urgent", IsFinal: true})

	if oracle.callCount() != 1 {
		t.Fatalf("expected one oracle call, got %d", oracle.callCount())
	}
	if c.state.Phase != PhaseAwaitingConfirmation {
		t.Errorf("expected awaiting_confirmation phase, got %q", c.state.Phase)
	}
	if c.state.Pending == nil {
		t.Fatal("expected a pending confirmation")
	}
	if got := len(channel.tasksExtracted()); got != 1 {
		t.Errorf("expected one tasks_extracted event, got %d", got)
	}
}

func TestInterimTranscriptDoesNotExtract(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	c, channel := newTestCoordinator(t, oracle, &scriptedAgent{}, newFakeSessionStore(), "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the", IsFinal: false})

	if oracle.callCount() != 0 {
		t.Errorf("interim transcript must not reach the oracle, got %d calls", oracle.callCount())
	}
	mirrored := channel.countByType(func(e any) bool {
		_, ok := e.(TranscriptEvent)
		return ok
	})
	if mirrored != 1 {
		t.Errorf("expected interim transcript mirrored once, got %d", mirrored)
	}
}

// Confirmation exclusivity: nothing is persisted until an affirmative signal
// arrives for a presented set.
func TestNoPersistenceWithoutConfirmation(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	ag := confirmingAgent(testDrafts("Fix login bug"))
	c, _ := newTestCoordinator(t, oracle, ag, store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug", IsFinal: true})

	if store.createdCount() != 0 {
		t.Fatalf("expected no persistence before confirmation, got %d", store.createdCount())
	}

	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: true})

	if store.createdCount() != 1 {
		t.Fatalf("expected one persisted task after confirmation, got %d", store.createdCount())
	}
	if c.state.Pending != nil {
		t.Error("expected pending confirmation cleared after persistence")
	}
	if c.state.Phase != PhaseListening {
		t.Errorf("expected session back in listening phase, got %q", c.state.Phase)
	}
}

func TestRejectionDiscardsPendingWithoutPersistence(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	ag := confirmingAgent(testDrafts("Fix login bug"))
	c, _ := newTestCoordinator(t, oracle, ag, store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug", IsFinal: true})
	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: false})

	if store.createdCount() != 0 {
		t.Errorf("rejection must not persist anything, got %d", store.createdCount())
	}
	if c.state.Pending != nil {
		t.Error("expected pending confirmation discarded on rejection")
	}

	// The synthetic rejection utterance reached the conversation.
	found := false
	for _, turn := range c.state.History {
		if turn.Content == syntheticConfirmNo {
			found = true
		}
	}
	if !found {
		t.Error("expected synthetic rejection utterance in history")
	}
}

// Per-draft failure isolation: with three drafts and one scripted failure,
// exactly two succeed and one named failure is reported; a later rejection
// does not disturb the persisted two.
func TestPerDraftFailureIsolation(t *testing.T) {
	t.Parallel()

	drafts := testDrafts("first", "second", "third")
	oracle := &stubOracle{response: `{"tasks":[{"title":"first"},{"title":"second"},{"title":"third"}]}`}
	store := newFakeSessionStore()
	store.failFor["second"] = fmt.Errorf("validation rejected")
	ag := confirmingAgent(drafts)
	c, channel := newTestCoordinator(t, oracle, ag, store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "three things to do", IsFinal: true})
	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: true})

	created := channel.countByType(func(e any) bool {
		_, ok := e.(TaskCreatedEvent)
		return ok
	})
	failed := 0
	channel.mu.Lock()
	for _, e := range channel.events {
		if ev, ok := e.(TaskFailedEvent); ok {
			failed++
			if ev.Task.Title != "second" {
				t.Errorf("failure attributed to wrong draft %q", ev.Task.Title)
			}
		}
	}
	channel.mu.Unlock()

	if created != 2 || failed != 1 {
		t.Fatalf("expected 2 task_created and 1 task_failed, got %d/%d", created, failed)
	}

	// Rejecting after the fact has no effect on what was persisted.
	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: false})
	if store.createdCount() != 2 {
		t.Errorf("expected persisted tasks untouched after rejection, got %d", store.createdCount())
	}
}

func TestPersistWithoutCredentialFailsExplicitly(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	ag := confirmingAgent(testDrafts("Fix login bug"))
	c, channel := newTestCoordinator(t, oracle, ag, store, "")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug", IsFinal: true})
	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: true})

	if store.createdCount() != 0 {
		t.Errorf("unauthenticated session must not persist, got %d", store.createdCount())
	}

	unauthenticated := channel.countByType(func(e any) bool {
		ev, ok := e.(TaskFailedEvent)
		return ok && ev.Error == "unauthenticated"
	})
	if unauthenticated != 1 {
		t.Errorf("expected one explicit unauthenticated failure, got %d", unauthenticated)
	}
}

// The agent knows only what the conversation tells it, so edits made in the
// client UI before confirming must be persisted from session state, not from
// anything the model echoes back.
func TestEditedDraftsAreWhatGetPersisted(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	c, _ := newTestCoordinator(t, oracle, conversationAgent(t), store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug", IsFinal: true})

	edited := testDrafts("Fix login bug on mobile")
	edited[0].Priority = models.PriorityHigh
	c.handleConfirm(context.Background(), InboundConfirm{Confirmed: true, Tasks: edited})

	if store.createdCount() != 1 {
		t.Fatalf("expected one persisted task, got %d", store.createdCount())
	}
	store.mu.Lock()
	title := store.created[0].Title
	priority := store.created[0].Priority
	store.mu.Unlock()
	if title != "Fix login bug on mobile" || priority != models.PriorityHigh {
		t.Errorf("expected edited draft persisted, got %q/%q", title, priority)
	}
}

// A spoken confirmation is a conversational turn: the model decides it was an
// affirmative and calls the persist action itself, while the presented set is
// still pending.
func TestSpokenConfirmationPersistsViaModel(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	store := newFakeSessionStore()
	ag := &scriptedAgent{}
	ag.fn = func(turns models.ConversationContext) *agent.Reply {
		last := turns[len(turns)-1].Content
		if last == "yes please, create them" {
			reply := &agent.Reply{Text: "Creating them now."}
			for _, d := range draftsFromTurns(t, turns) {
				reply.Actions = append(reply.Actions, agent.PersistDraft{Draft: d})
			}
			return reply
		}
		if drafts := draftsFromTurns(t, turns); drafts != nil {
			return &agent.Reply{Actions: []agent.Action{agent.PresentDrafts{Drafts: drafts}}}
		}
		return &agent.Reply{}
	}
	c, _ := newTestCoordinator(t, oracle, ag, store, "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "fix the login bug", IsFinal: true})
	if c.state.Phase != PhaseAwaitingConfirmation {
		t.Fatalf("expected awaiting_confirmation before the spoken reply, got %q", c.state.Phase)
	}

	c.handleTranscript(context.Background(), InboundTranscript{Text: "yes please, create them", IsFinal: true})

	if store.createdCount() != 1 {
		t.Fatalf("expected one persisted task, got %d", store.createdCount())
	}
	store.mu.Lock()
	title := store.created[0].Title
	store.mu.Unlock()
	if title != "Fix login bug" {
		t.Errorf("expected the presented draft persisted, got %q", title)
	}
	if c.state.Pending != nil {
		t.Error("expected pending confirmation cleared after persistence")
	}
}

func TestClarificationLoopsBackToListening(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: `{"tasks":[],"needs_clarification":true,"clarification_question":"Which thing do you mean?"}`}
	c, channel := newTestCoordinator(t, oracle, &scriptedAgent{}, newFakeSessionStore(), "cred")

	c.handleTranscript(context.Background(), InboundTranscript{Text: "do the thing we talked about", IsFinal: true})

	if c.state.Phase != PhaseListening {
		t.Errorf("expected listening phase after clarification, got %q", c.state.Phase)
	}
	questions := channel.countByType(func(e any) bool {
		ev, ok := e.(AgentMessageEvent)
		return ok && ev.Text == "Which thing do you mean?"
	})
	if questions != 1 {
		t.Errorf("expected the literal clarification question sent once, got %d", questions)
	}

	// The question is part of the running context, so the next utterance
	// reaches the oracle with the full loop threaded.
	oracle.response = oneTaskResponse
	c.handleTranscript(context.Background(), InboundTranscript{Text: "the login bug from yesterday", IsFinal: true})

	oracle.mu.Lock()
	captured := oracle.captured
	oracle.mu.Unlock()
	if len(captured) < 3 {
		t.Fatalf("expected clarification loop threaded to oracle, got %d turns", len(captured))
	}
	if captured[1].Content != "Which thing do you mean?" {
		t.Errorf("expected question as second turn, got %q", captured[1].Content)
	}
}

func TestNewPresentationReplacesPending(t *testing.T) {
	t.Parallel()

	oracle := &stubOracle{response: oneTaskResponse}
	c, _ := newTestCoordinator(t, oracle, &scriptedAgent{}, newFakeSessionStore(), "cred")

	c.dispatch(context.Background(), agent.PresentDrafts{Drafts: testDrafts("old draft")})
	firstID := c.state.Pending.ID
	c.dispatch(context.Background(), agent.PresentDrafts{Drafts: testDrafts("new draft")})

	if c.state.Pending.ID == firstID {
		t.Error("expected a fresh pending confirmation")
	}
	if len(c.state.Pending.Drafts) != 1 || c.state.Pending.Drafts[0].Title != "new draft" {
		t.Errorf("expected pending replaced by new set, got %+v", c.state.Pending.Drafts)
	}
}
