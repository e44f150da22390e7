package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"google.golang.org/api/iterator"
)

type memoryEntryDoc struct {
	Text            string    `firestore:"text"`
	SourceMessageID string    `firestore:"sourceMessageId"`
	ChatID          string    `firestore:"chatId,omitempty"`
	CreatedAt       time.Time `firestore:"createdAt"`
}

func toMemoryEntryDoc(e *model.MemoryEntry) *memoryEntryDoc {
	return &memoryEntryDoc{
		Text:            e.Text,
		SourceMessageID: e.SourceMessageID.String(),
		ChatID:          e.ChatID.String(),
		CreatedAt:       e.CreatedAt,
	}
}

func fromMemoryEntryDoc(id types.MemoryID, d *memoryEntryDoc) *model.MemoryEntry {
	return &model.MemoryEntry{
		ID:              id,
		Text:            d.Text,
		SourceMessageID: types.MessageID(d.SourceMessageID),
		ChatID:          types.ChatID(d.ChatID),
		CreatedAt:       d.CreatedAt,
	}
}

type memoryEntryRepository struct {
	client *firestore.Client
}

func newMemoryEntryRepository(client *firestore.Client) *memoryEntryRepository {
	return &memoryEntryRepository{client: client}
}

// memoryCollection returns chats/{chatId}/memory or users/{uid}/memory
// depending on the owner scope.
func (r *memoryEntryRepository) memoryCollection(owner model.MemoryOwner) *firestore.CollectionRef {
	if owner.Scope.Normalize() == types.MemoryScopeUser {
		return r.client.Collection("users").Doc(owner.UserID.String()).Collection("memory")
	}
	return r.client.Collection("chats").Doc(owner.ChatID.String()).Collection("memory")
}

func (r *memoryEntryRepository) Append(ctx context.Context, owner model.MemoryOwner, entry *model.MemoryEntry) (*model.MemoryEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to append memory entry")
	}

	created := *entry
	if created.ID == "" {
		created.ID = types.NewMemoryID()
	}
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}

	docRef := r.memoryCollection(owner).Doc(created.ID.String())
	if _, err := docRef.Create(ctx, toMemoryEntryDoc(&created)); err != nil {
		return nil, goerr.Wrap(err, "failed to append memory entry", goerr.V("memoryID", created.ID))
	}

	return &created, nil
}

func (r *memoryEntryRepository) ListRecent(ctx context.Context, owner model.MemoryOwner, limit int) ([]*model.MemoryEntry, error) {
	if err := owner.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to list memory entries")
	}

	iter := r.memoryCollection(owner).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	entries := make([]*model.MemoryEntry, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate memory entries")
		}

		var d memoryEntryDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal memory entry")
		}

		entries = append(entries, fromMemoryEntryDoc(types.MemoryID(doc.Ref.ID), &d))
	}

	return entries, nil
}
