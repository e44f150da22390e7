package usecase

import (
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
)

// moderationTools is the fixed tool catalog offered to the model. The
// respondToChat tool is included only when an assistant name is
// configured; its sparing-use policy is enforced by the prompt, not
// programmatically.
func moderationTools(respondEnabled bool) []interfaces.ToolSpec {
	tools := []interfaces.ToolSpec{
		{
			Name: model.ToolFlagInappropriate,
			Description: "Flag a message as hateful, harassing, or otherwise violating policy. " +
				"Use when user content is offensive or harmful.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chatId":    map[string]any{"type": "string"},
					"messageId": map[string]any{"type": "string"},
					"reason":    map[string]any{"type": "string"},
				},
				"required": []string{"chatId", "messageId", "reason"},
			},
		},
		{
			Name: model.ToolWriteMemory,
			Description: "Store an important fact about the chat participants, their preferences, " +
				"or goals to help future assistance.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chatId": map[string]any{"type": "string"},
					"memory": map[string]any{"type": "string"},
				},
				"required": []string{"chatId", "memory"},
			},
		},
	}

	if respondEnabled {
		tools = append(tools, interfaces.ToolSpec{
			Name: model.ToolRespondToChat,
			Description: "Post a brief assistant response to the chat when appropriate. Use sparingly: " +
				"only if the assistant is addressed by name, if an intervention would help group " +
				"cohesion, or to concisely summarize key learnings or decisions. Do not over-respond.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"chatId": map[string]any{"type": "string"},
					"messageId": map[string]any{
						"type":        "string",
						"description": "The current (latest) message id being processed",
					},
					"text": map[string]any{"type": "string"},
				},
				"required": []string{"chatId", "messageId", "text"},
			},
		})
	}

	return tools
}
