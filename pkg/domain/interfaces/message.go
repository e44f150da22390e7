package interfaces

import (
	"context"

	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// MessageRepository defines the interface for Message data persistence
type MessageRepository interface {
	// Get retrieves a message by ID
	Get(ctx context.Context, chatID types.ChatID, messageID types.MessageID) (*model.Message, error)

	// Put creates or replaces a message document
	Put(ctx context.Context, msg *model.Message) (*model.Message, error)

	// ListRecent retrieves up to limit messages of a chat ordered by
	// CreatedAt descending (newest first)
	ListRecent(ctx context.Context, chatID types.ChatID, limit int) ([]*model.Message, error)

	// UpdateModeration replaces the whole moderation record of a message.
	// Replacing (not field-merging) is what clears stale flag fields on a
	// clean re-evaluation.
	UpdateModeration(ctx context.Context, chatID types.ChatID, messageID types.MessageID, mod model.Moderation) error
}
