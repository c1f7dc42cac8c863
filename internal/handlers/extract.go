package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/request"
	"github.com/voxtask/voxtask/internal/validation"
	"go.uber.org/zap"
)

// Extractor turns a transcript plus prior turns into an extraction outcome.
type Extractor interface {
	Extract(ctx context.Context, transcript string, history models.ConversationContext) models.ExtractionOutcome
}

// ExtractHandler serves the turn-based extraction endpoint.
type ExtractHandler struct {
	extractor Extractor
	logger    *zap.Logger
}

// NewExtractHandler creates the extraction handler.
func NewExtractHandler(extractor Extractor, logger *zap.Logger) *ExtractHandler {
	return &ExtractHandler{extractor: extractor, logger: logger}
}

// ExtractRequest is the POST /api/extract-tasks request body. History roles
// accept both "assistant" and the client's "ai" alias.
type ExtractRequest struct {
	Transcript          string `json:"transcript"`
	ConversationHistory []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"conversationHistory,omitempty"`
}

// ExtractResponse is the extraction envelope. Tasks is always present, empty
// rather than null, so clients can iterate it unconditionally.
type ExtractResponse struct {
	Success               bool               `json:"success"`
	Message               string             `json:"message,omitempty"`
	Tasks                 []models.TaskDraft `json:"tasks"`
	Summary               string             `json:"summary,omitempty"`
	NeedsClarification    bool               `json:"needsClarification,omitempty"`
	ClarificationQuestion string             `json:"clarificationQuestion,omitempty"`
	Error                 string             `json:"error,omitempty"`
}

// ExtractTasks handles POST /api/extract-tasks.
func (h *ExtractHandler) ExtractTasks(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ExtractResponse{
			Success: false,
			Message: "Invalid request body",
			Tasks:   []models.TaskDraft{},
		})
		return
	}

	transcript := validation.SanitizeText(req.Transcript)
	if transcript == "" {
		// Rejected before any oracle work happens.
		respondJSON(w, http.StatusBadRequest, ExtractResponse{
			Success: false,
			Message: "Transcript is required",
			Tasks:   []models.TaskDraft{},
		})
		return
	}

	history := make(models.ConversationContext, 0, len(req.ConversationHistory))
	for _, turn := range req.ConversationHistory {
		history = history.Append(models.NormalizeRole(turn.Role), turn.Content)
	}

	if user := request.UserFromContext(r); user != nil {
		h.logger.Debug("extraction_requested",
			zap.String("user_id", user.ID),
			zap.Int("history_turns", len(history)),
		)
	}

	outcome := h.extractor.Extract(r.Context(), transcript, history)

	switch outcome.Kind {
	case models.OutcomeClarification:
		respondJSON(w, http.StatusOK, ExtractResponse{
			Success:               true,
			Message:               outcome.Question,
			Tasks:                 []models.TaskDraft{},
			NeedsClarification:    true,
			ClarificationQuestion: outcome.Question,
		})

	case models.OutcomeDrafts:
		if outcome.Fallback {
			h.logger.Info("extraction_served_fallback", zap.Int("draft_count", len(outcome.Drafts)))
		}
		respondJSON(w, http.StatusOK, ExtractResponse{
			Success: true,
			Message: outcome.Summary,
			Tasks:   outcome.Drafts,
			Summary: outcome.Summary,
		})

	default:
		h.logger.Error("unknown_extraction_outcome", zap.String("kind", string(outcome.Kind)))
		respondJSON(w, http.StatusInternalServerError, ExtractResponse{
			Success: false,
			Error:   "Internal Server Error",
			Tasks:   []models.TaskDraft{},
		})
	}
}
