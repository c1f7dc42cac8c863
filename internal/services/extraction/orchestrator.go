package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/voxtask/voxtask/internal/logger"
	"github.com/voxtask/voxtask/internal/models"
	"go.uber.org/zap"
)

// Orchestrator composes the oracle client and the normalizer into the
// extraction contract: for any non-empty transcript it returns either a
// drafts outcome or a clarification outcome, never a hard failure. Oracle
// timeouts, transport errors, and unusable output are absorbed into the
// deterministic heuristic fallback.
type Orchestrator struct {
	client  Client
	vocab   Vocabulary
	timeout time.Duration
	logger  *zap.Logger
}

// NewOrchestrator creates an orchestrator. A nil vocabulary falls back to the
// built-in defaults; a non-positive timeout falls back to DefaultTimeout.
func NewOrchestrator(client Client, vocab Vocabulary, timeout time.Duration, log *zap.Logger) *Orchestrator {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		client:  client,
		vocab:   vocab,
		timeout: timeout,
		logger:  log,
	}
}

// Extract turns a transcript plus conversation history into an extraction
// outcome. Callers must reject empty transcripts before calling; Extract
// still degrades to the fallback path rather than fail if one slips through.
// No side effects; identical input and oracle response yield an identical
// outcome.
func (o *Orchestrator) Extract(ctx context.Context, transcript string, history models.ConversationContext) models.ExtractionOutcome {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	turns := history.Append(models.RoleUser, BuildExtractionTurn(transcript))

	content, err := o.client.Complete(ctx, CompletionRequest{
		Operation:  "extract_tasks",
		System:     extractionSystemPrompt,
		Turns:      turns,
		JSONObject: true,
	})
	if err != nil {
		o.logger.Warn("extraction_fallback",
			zap.String("reason", "oracle_call_failed"),
			zap.String("error", logger.SanitizeError(err)),
		)
		return models.FallbackOutcome([]models.TaskDraft{HeuristicDraft(transcript, o.vocab)})
	}

	resp, err := parseOracleResponse(content)
	if err != nil {
		o.logger.Warn("extraction_fallback",
			zap.String("reason", "unparseable_oracle_output"),
			zap.String("error", logger.SanitizeError(err)),
			zap.Int("response_length", len(content)),
		)
		return models.FallbackOutcome([]models.TaskDraft{HeuristicDraft(transcript, o.vocab)})
	}

	if resp.NeedsClarification {
		question := strings.TrimSpace(resp.ClarificationQuestion)
		if question == "" {
			question = "Could you tell me more about what you need to get done?"
		}
		return models.ClarificationOutcome(question)
	}

	if len(resp.Tasks) == 0 {
		// Strict JSON but nothing extracted and no question asked. Treat
		// as unusable output so the user still gets a draft.
		o.logger.Warn("extraction_fallback", zap.String("reason", "empty_task_list"))
		return models.FallbackOutcome([]models.TaskDraft{HeuristicDraft(transcript, o.vocab)})
	}

	return models.DraftsOutcome(normalizeDrafts(resp.Tasks), strings.TrimSpace(resp.Summary))
}

// Summarize produces a plain-text summary of a finished conversation. Unlike
// Extract it propagates errors; the worker retries via the queue.
func (o *Orchestrator) Summarize(ctx context.Context, turns models.ConversationContext) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var b strings.Builder
	b.WriteString("Summarize the following conversation:\n\n")
	for _, turn := range turns {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}

	return o.client.Complete(ctx, CompletionRequest{
		Operation: "summarize_session",
		System:    summarySystemPrompt,
		Turns:     models.ConversationContext{{Role: models.RoleUser, Content: b.String()}},
	})
}
