package interfaces

import (
	"context"

	"github.com/secmon-lab/chatwarden/pkg/domain/model"
)

// ToolSpec is one callable function definition offered to the completion
// API. Parameters holds a JSON schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatCompletion wraps the hosted chat-completion API. Both call shapes
// use deterministic sampling (temperature 0).
//
// An error means the call failed outright without a usable response
// (non-2xx status, transport failure). Callers must treat it as "no
// action taken this cycle" and leave their own state untouched; the
// moderation flow in particular must not mark a message checked on it.
type ChatCompletion interface {
	// ToolCompletion runs a tool-calling request (tool_choice=auto) and
	// returns the model's tool calls. An empty slice is a successful
	// response that requested no action.
	ToolCompletion(ctx context.Context, system, user string, tools []ToolSpec) ([]model.ToolCall, error)

	// JSONCompletion runs a JSON-mode request and returns the raw text of
	// the single JSON object for the caller to parse.
	JSONCompletion(ctx context.Context, system, user string) (string, error)
}
