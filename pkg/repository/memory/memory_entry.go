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

// ownerKey is a composite key for memory entry buckets
type ownerKey struct {
	scope  types.MemoryScope
	chatID types.ChatID
	userID types.UserID
}

func toOwnerKey(o model.MemoryOwner) ownerKey {
	return ownerKey{scope: o.Scope.Normalize(), chatID: o.ChatID, userID: o.UserID}
}

type memoryEntryRepository struct {
	mu      sync.RWMutex
	entries map[ownerKey]map[types.MemoryID]*model.MemoryEntry
}

func newMemoryEntryRepository() *memoryEntryRepository {
	return &memoryEntryRepository{
		entries: make(map[ownerKey]map[types.MemoryID]*model.MemoryEntry),
	}
}

func copyMemoryEntry(e *model.MemoryEntry) *model.MemoryEntry {
	copied := *e
	return &copied
}

func (r *memoryEntryRepository) Append(ctx context.Context, owner model.MemoryOwner, entry *model.MemoryEntry) (*model.MemoryEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to append memory entry")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := toOwnerKey(owner)
	if _, exists := r.entries[key]; !exists {
		r.entries[key] = make(map[types.MemoryID]*model.MemoryEntry)
	}

	created := copyMemoryEntry(entry)
	if created.ID == "" {
		created.ID = types.NewMemoryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	r.entries[key][created.ID] = created
	return copyMemoryEntry(created), nil
}

func (r *memoryEntryRepository) ListRecent(ctx context.Context, owner model.MemoryOwner, limit int) ([]*model.MemoryEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to list memory entries")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket, exists := r.entries[toOwnerKey(owner)]
	if !exists {
		return []*model.MemoryEntry{}, nil
	}

	result := make([]*model.MemoryEntry, 0, len(bucket))
	for _, e := range bucket {
		result = append(result, copyMemoryEntry(e))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}
