package memory

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

type groupMemoryRepository struct {
	mu        sync.RWMutex
	summaries map[types.ChatID]*model.GroupMemory
}

func newGroupMemoryRepository() *groupMemoryRepository {
	return &groupMemoryRepository{
		summaries: make(map[types.ChatID]*model.GroupMemory),
	}
}

func copyGroupMemory(g *model.GroupMemory) *model.GroupMemory {
	copied := *g
	copied.Goals = append([]string(nil), g.Goals...)
	copied.Risks = append([]string(nil), g.Risks...)
	copied.Sources = append([]types.MemoryID(nil), g.Sources...)
	return &copied
}

func (r *groupMemoryRepository) Get(ctx context.Context, chatID types.ChatID) (*model.GroupMemory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, exists := r.summaries[chatID]
	if !exists {
		return nil, goerr.Wrap(ErrNotFound, "group memory not found", goerr.V("chatID", chatID))
	}

	return copyGroupMemory(g), nil
}

func (r *groupMemoryRepository) Merge(ctx context.Context, chatID types.ChatID, patch model.GroupMemoryPatch) error {
	if err := chatID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to merge group memory")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	base := model.GroupMemory{}
	if stored, exists := r.summaries[chatID]; exists {
		base = *copyGroupMemory(stored)
	}

	merged := patch.Apply(base)
	r.summaries[chatID] = &merged
	return nil
}
