package interfaces

import (
	"context"

	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// MemoryRepository defines the interface for MemoryEntry persistence.
// Entries are append-only: there is no update or delete.
type MemoryRepository interface {
	// Append stores a new immutable memory entry for the owner
	Append(ctx context.Context, owner model.MemoryOwner, entry *model.MemoryEntry) (*model.MemoryEntry, error)

	// ListRecent retrieves up to limit entries ordered by CreatedAt
	// descending (newest first)
	ListRecent(ctx context.Context, owner model.MemoryOwner, limit int) ([]*model.MemoryEntry, error)
}

// GroupMemoryRepository defines the interface for the per-chat summary
// document.
type GroupMemoryRepository interface {
	// Get retrieves the summary of a chat, or ErrNotFound
	Get(ctx context.Context, chatID types.ChatID) (*model.GroupMemory, error)

	// Merge applies a consolidation patch over the stored summary,
	// creating the document if absent. Fields the patch omits keep their
	// prior values.
	Merge(ctx context.Context, chatID types.ChatID, patch model.GroupMemoryPatch) error
}
