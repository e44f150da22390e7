package model

import (
	"encoding/json"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// Tool names offered to the completion API. The wire names match the
// function definitions sent in the tools array.
const (
	ToolFlagInappropriate = "flagInappropriate"
	ToolWriteMemory       = "writeMemory"
	ToolRespondToChat     = "respondToChat"
)

// ToolCall is a raw tool invocation returned by the completion API:
// a function name plus a JSON-encoded argument object.
type ToolCall struct {
	Name      string
	Arguments string
}

// ErrUnknownTool is returned for tool calls naming no known command.
var ErrUnknownTool = goerr.New("unknown tool")

// Command is a validated moderation action requested by the model.
// It is a closed set: FlagCommand, WriteMemoryCommand and RespondCommand
// are the only implementations. Raw tool calls are parsed and validated
// into a Command before any side effect is applied.
type Command interface {
	isCommand()
}

// FlagCommand marks a message as violating policy.
type FlagCommand struct {
	ChatID    types.ChatID
	MessageID types.MessageID
	Reason    string
}

func (FlagCommand) isCommand() {}

// WriteMemoryCommand stores a durable fact about the chat participants.
type WriteMemoryCommand struct {
	ChatID types.ChatID
	Memory string
}

func (WriteMemoryCommand) isCommand() {}

// RespondCommand requests an assistant reply to the chat.
type RespondCommand struct {
	ChatID    types.ChatID
	MessageID types.MessageID
	Text      string
}

func (RespondCommand) isCommand() {}

// ParseCommand validates a raw tool call into a Command. Unknown tool
// names yield ErrUnknownTool; malformed argument JSON and missing
// required fields yield a descriptive error. Callers log and skip the
// offending call rather than aborting the pipeline.
func ParseCommand(call ToolCall) (Command, error) {
	switch call.Name {
	case ToolFlagInappropriate:
		var args struct {
			ChatID    string `json:"chatId"`
			MessageID string `json:"messageId"`
			Reason    string `json:"reason"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, goerr.Wrap(err, "failed to parse flagInappropriate arguments", goerr.V("arguments", call.Arguments))
		}
		if args.ChatID == "" || args.MessageID == "" || args.Reason == "" {
			return nil, goerr.New("flagInappropriate requires chatId, messageId and reason", goerr.V("arguments", call.Arguments))
		}
		return FlagCommand{
			ChatID:    types.ChatID(args.ChatID),
			MessageID: types.MessageID(args.MessageID),
			Reason:    args.Reason,
		}, nil

	case ToolWriteMemory:
		var args struct {
			ChatID string `json:"chatId"`
			Memory string `json:"memory"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, goerr.Wrap(err, "failed to parse writeMemory arguments", goerr.V("arguments", call.Arguments))
		}
		if args.ChatID == "" || args.Memory == "" {
			return nil, goerr.New("writeMemory requires chatId and memory", goerr.V("arguments", call.Arguments))
		}
		return WriteMemoryCommand{
			ChatID: types.ChatID(args.ChatID),
			Memory: args.Memory,
		}, nil

	case ToolRespondToChat:
		var args struct {
			ChatID    string `json:"chatId"`
			MessageID string `json:"messageId"`
			Text      string `json:"text"`
		}
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return nil, goerr.Wrap(err, "failed to parse respondToChat arguments", goerr.V("arguments", call.Arguments))
		}
		if args.ChatID == "" || args.MessageID == "" || args.Text == "" {
			return nil, goerr.New("respondToChat requires chatId, messageId and text", goerr.V("arguments", call.Arguments))
		}
		return RespondCommand{
			ChatID:    types.ChatID(args.ChatID),
			MessageID: types.MessageID(args.MessageID),
			Text:      args.Text,
		}, nil

	default:
		return nil, goerr.Wrap(ErrUnknownTool, "tool call rejected", goerr.V("name", call.Name))
	}
}
