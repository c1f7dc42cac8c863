package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/voxtask/voxtask/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default conversational model
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout bounds one conversational turn
	DefaultTimeout = 30 * time.Second

	actionPresentDrafts = "present_drafts"
	actionPersistDraft  = "persist_draft"
)

// sessionSystemPrompt governs the confirmation discipline: the model must
// restate extracted tasks before asking for confirmation and must never
// persist without an explicit affirmative from the user.
const sessionSystemPrompt = `You are a voice assistant that helps users capture tasks.

When the session reports extracted tasks, call present_drafts with them, then
restate each task to the user in your own words and ask whether to create them.

Only call persist_draft after the user explicitly confirms, once per confirmed
task. Never persist a task the user has not confirmed. If the user declines,
acknowledge and drop the drafts. Keep spoken replies short and natural.`

// OpenAIAgent implements Agent using OpenAI chat completions with tool calling.
type OpenAIAgent struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIAgent creates a conversational agent.
func NewOpenAIAgent(apiKey, baseURL, model string, log *zap.Logger, debugMode bool) *OpenAIAgent {
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: DefaultTimeout}),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &OpenAIAgent{
		client:    openai.NewClient(opts...),
		model:     model,
		logger:    log,
		debugMode: debugMode,
	}
}

// Respond runs one conversational turn. Tool calls made by the model are
// decoded into the typed action union; an unknown tool name is an error, not
// a silently dropped call.
func (a *OpenAIAgent) Respond(ctx context.Context, turns models.ConversationContext) (*Reply, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	messages = append(messages, openai.SystemMessage(sessionSystemPrompt))
	for _, turn := range turns {
		switch models.NormalizeRole(turn.Role) {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(a.model),
		Messages: messages,
		Tools:    sessionTools(),
	}

	if a.debugMode {
		a.logger.Debug("agent_request",
			zap.String("model", a.model),
			zap.Int("message_count", len(messages)),
		)
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("agent turn failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("agent returned no choices")
	}

	message := resp.Choices[0].Message
	reply := &Reply{Text: message.Content}

	for _, call := range message.ToolCalls {
		action, err := decodeAction(call.Function.Name, []byte(call.Function.Arguments))
		if err != nil {
			return nil, fmt.Errorf("agent tool call: %w", err)
		}
		reply.Actions = append(reply.Actions, action)
	}

	if a.debugMode {
		a.logger.Debug("agent_response",
			zap.Int("action_count", len(reply.Actions)),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
		)
	}

	return reply, nil
}

// sessionTools declares the two callable actions for the model.
func sessionTools() []openai.ChatCompletionToolUnionParam {
	draftSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
			"priority":    map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "urgent"}},
			"tags":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"dueDate":     map[string]any{"type": "string"},
			"status":      map[string]any{"type": "string", "enum": []string{"todo", "in-progress", "completed"}},
			"projectName": map[string]any{"type": "string"},
		},
		"required": []string{"title"},
	}

	return []openai.ChatCompletionToolUnionParam{
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        actionPresentDrafts,
			Description: openai.String("Present extracted task drafts to the user for confirmation. Call before asking the user to confirm."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"tasks":   map[string]any{"type": "array", "items": draftSchema},
					"summary": map[string]any{"type": "string"},
				},
				"required": []string{"tasks"},
			},
		}),
		openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        actionPersistDraft,
			Description: openai.String("Persist one task draft the user has explicitly confirmed."),
			Parameters: shared.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"task": draftSchema,
				},
				"required": []string{"task"},
			},
		}),
	}
}

// decodeAction maps a tool call onto the typed action union.
func decodeAction(name string, args []byte) (Action, error) {
	switch name {
	case actionPresentDrafts:
		var action PresentDrafts
		if err := json.Unmarshal(args, &action); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", name, err)
		}
		return action, nil
	case actionPersistDraft:
		var action PersistDraft
		if err := json.Unmarshal(args, &action); err != nil {
			return nil, fmt.Errorf("invalid %s arguments: %w", name, err)
		}
		return action, nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}
