package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/voxtask/voxtask/internal/logger"
	"github.com/voxtask/voxtask/internal/models"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout bounds a single oracle call
	DefaultTimeout = 30 * time.Second

	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = "no choices in response"
)

// Client is the text-completion oracle boundary. Implementations return the
// raw completion text or fail; everything above this interface treats the
// oracle as opaque and occasionally unreliable.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest carries one oracle call: a system instruction, the
// conversation so far, and whether the response must be a JSON object.
type CompletionRequest struct {
	Operation  string
	System     string
	Turns      models.ConversationContext
	JSONObject bool
}

// OpenAIClient implements Client using OpenAI's chat completions API.
type OpenAIClient struct {
	client    openai.Client
	model     string
	logger    *zap.Logger
	debugMode bool
}

// NewOpenAIClient creates an oracle client with the default base URL and no logging.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithLogger(apiKey, "", model, nil, false)
}

// NewOpenAIClientWithLogger creates an oracle client with logger support.
func NewOpenAIClientWithLogger(apiKey, baseURL, model string, log *zap.Logger, debugMode bool) *OpenAIClient {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := &http.Client{
		Timeout: DefaultTimeout,
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(httpClient),
	)

	return &OpenAIClient{
		client:    client,
		model:     model,
		logger:    log,
		debugMode: debugMode,
	}
}

// Complete sends one chat completion request and returns the raw content of
// the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Turns)+1)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	for _, turn := range req.Turns {
		switch models.NormalizeRole(turn.Role) {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if req.JSONObject {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_request",
			zap.String("operation", req.Operation),
			zap.String("model", c.model),
			zap.Int("message_count", len(messages)),
		)
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	latency := time.Since(start)

	if err != nil {
		if c.logger != nil && c.debugMode {
			c.logger.Debug("llm_api_error",
				zap.String("operation", req.Operation),
				zap.String("model", c.model),
				zap.Error(err),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		if apiErr := ExtractAPIError(err); apiErr != nil {
			return "", fmt.Errorf("completion failed: %w", apiErr)
		}
		return "", fmt.Errorf("completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New(ErrNoChoicesInResponse)
	}

	content := resp.Choices[0].Message.Content

	if c.logger != nil && c.debugMode {
		c.logger.Debug("llm_api_response",
			zap.String("operation", req.Operation),
			zap.String("model", c.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.SanitizeDebugContent(content)),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}
