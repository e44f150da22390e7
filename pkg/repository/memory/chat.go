package memory

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

type chatRepository struct {
	mu    sync.RWMutex
	chats map[types.ChatID]*model.Chat
}

func newChatRepository() *chatRepository {
	return &chatRepository{
		chats: make(map[types.ChatID]*model.Chat),
	}
}

func copyChat(c *model.Chat) *model.Chat {
	copied := *c
	copied.Participants = append([]types.UserID(nil), c.Participants...)
	return &copied
}

func (r *chatRepository) Get(ctx context.Context, chatID types.ChatID) (*model.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, exists := r.chats[chatID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "chat not found", goerr.V("chatID", chatID))
	}

	return copyChat(c), nil
}

func (r *chatRepository) Upsert(ctx context.Context, chat *model.Chat) error {
	if err := chat.ID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to upsert chat")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	stored, exists := r.chats[chat.ID]
	if !exists {
		created := copyChat(chat)
		created.CreatedAt = now
		created.UpdatedAt = now
		r.chats[chat.ID] = created
		return nil
	}

	stored.Type = chat.Type
	stored.Name = chat.Name
	stored.UpdatedAt = now
	return nil
}

func (r *chatRepository) AddParticipant(ctx context.Context, chatID types.ChatID, userID types.UserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.chats[chatID]
	if !exists {
		return goerr.Wrap(ErrNotFound, "chat not found", goerr.V("chatID", chatID))
	}

	if !c.HasParticipant(userID) {
		c.Participants = append(c.Participants, userID)
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}
