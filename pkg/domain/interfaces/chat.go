package interfaces

import (
	"context"

	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// ChatRepository defines the interface for Chat data persistence
type ChatRepository interface {
	// Get retrieves a chat by ID, or ErrNotFound
	Get(ctx context.Context, chatID types.ChatID) (*model.Chat, error)

	// Upsert merges type/name into the chat document, creating it if
	// absent. Participants are not touched.
	Upsert(ctx context.Context, chat *model.Chat) error

	// AddParticipant adds the user to the chat's participant set via a
	// set-union write (idempotent)
	AddParticipant(ctx context.Context, chatID types.ChatID, userID types.UserID) error
}

// UserRepository defines the interface for User data persistence
type UserRepository interface {
	// Get retrieves a user by ID, or ErrNotFound
	Get(ctx context.Context, userID types.UserID) (*model.User, error)

	// Upsert merges the profile fields into the user document, creating
	// it if absent
	Upsert(ctx context.Context, user *model.User) error
}
