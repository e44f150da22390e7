package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

type messageRepository struct {
	mu       sync.RWMutex
	messages map[types.ChatID]map[types.MessageID]*model.Message
}

func newMessageRepository() *messageRepository {
	return &messageRepository{
		messages: make(map[types.ChatID]map[types.MessageID]*model.Message),
	}
}

func copyMessage(m *model.Message) *model.Message {
	copied := *m
	if m.Moderation.FlaggedAt != nil {
		at := *m.Moderation.FlaggedAt
		copied.Moderation.FlaggedAt = &at
	}
	return &copied
}

func (r *messageRepository) Get(ctx context.Context, chatID types.ChatID, messageID types.MessageID) (*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.messages[chatID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
	}
	msg, exists := bucket[messageID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
	}

	return copyMessage(msg), nil
}

func (r *messageRepository) Put(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := msg.ChatID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to put message")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyMessage(msg)
	if stored.ID == "" {
		stored.ID = types.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	if _, exists := r.messages[stored.ChatID]; !exists {
		r.messages[stored.ChatID] = make(map[types.MessageID]*model.Message)
	}
	r.messages[stored.ChatID][stored.ID] = stored

	return copyMessage(stored), nil
}

func (r *messageRepository) ListRecent(ctx context.Context, chatID types.ChatID, limit int) ([]*model.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.messages[chatID]
	if !exists {
		return []*model.Message{}, nil
	}

	result := make([]*model.Message, 0, len(bucket))
	for _, m := range bucket {
		result = append(result, copyMessage(m))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *messageRepository) UpdateModeration(ctx context.Context, chatID types.ChatID, messageID types.MessageID, mod model.Moderation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	bucket, exists := r.messages[chatID]
	if !exists {
		return goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
	}
	msg, exists := bucket[messageID]
	if !exists {
		return goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
	}

	// Whole-record replacement: stale flag fields do not survive a
	// clean re-evaluation.
	msg.Moderation = mod
	return nil
}
