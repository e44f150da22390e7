package llm

import (
	"context"
	"errors"
	"math"

	"github.com/m-mizutani/goerr/v2"
	openai "github.com/sashabaranov/go-openai"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
)

// DefaultModel is the completion model used unless overridden.
const DefaultModel = openai.GPT4oMini

// go-openai drops a zero Temperature from the request body, which makes
// the API fall back to its own default. The smallest representable
// positive value serializes and keeps sampling deterministic.
const zeroTemperature = math.SmallestNonzeroFloat32

// Client wraps the hosted chat-completion API.
type Client struct {
	client *openai.Client
	model  string
}

var _ interfaces.ChatCompletion = &Client{}

type Option func(*Client)

// WithModel overrides the completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// New creates a chat-completion client. baseURL may be empty to use the
// upstream API endpoint; tests point it at a stub server.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, goerr.New("API key is required")
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	c := &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

func (c *Client) ToolCompletion(ctx context.Context, system, user string, tools []interfaces.ToolSpec) ([]model.ToolCall, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: zeroTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Tools:      toOpenAITools(tools),
		ToolChoice: "auto",
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, c.handleError(ctx, err, "tool completion failed")
	}

	if len(resp.Choices) == 0 {
		return []model.ToolCall{}, nil
	}

	calls := make([]model.ToolCall, 0, len(resp.Choices[0].Message.ToolCalls))
	for _, tc := range resp.Choices[0].Message.ToolCalls {
		calls = append(calls, model.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return calls, nil
}

func (c *Client) JSONCompletion(ctx context.Context, system, user string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: zeroTemperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", c.handleError(ctx, err, "JSON completion failed")
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}

	return resp.Choices[0].Message.Content, nil
}

// handleError logs the upstream failure with its status and body. The
// returned error means "no response this cycle"; callers proceed without
// one and must not treat it as a model verdict.
func (c *Client) handleError(ctx context.Context, err error, msg string) error {
	logger := logging.From(ctx)

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		logger.Error(msg,
			"status", apiErr.HTTPStatusCode,
			"body", apiErr.Message,
		)
		return goerr.Wrap(err, msg,
			goerr.V("status", apiErr.HTTPStatusCode),
		)
	}

	logger.Error(msg, "error", err.Error())
	return goerr.Wrap(err, msg)
}

func toOpenAITools(tools []interfaces.ToolSpec) []openai.Tool {
	result := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		result = append(result, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return result
}
