package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type groupMemoryDoc struct {
	Purpose     string    `firestore:"purpose,omitempty"`
	Goals       []string  `firestore:"goals,omitempty"`
	Alignment   string    `firestore:"alignment,omitempty"`
	Summary     string    `firestore:"summary,omitempty"`
	Risks       []string  `firestore:"risks,omitempty"`
	SourceCount int       `firestore:"sourceCount"`
	Sources     []string  `firestore:"sources"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type groupMemoryRepository struct {
	client *firestore.Client
}

func newGroupMemoryRepository(client *firestore.Client) *groupMemoryRepository {
	return &groupMemoryRepository{client: client}
}

// summaryDoc returns chats/{chatId}/__meta/groupMemory
func (r *groupMemoryRepository) summaryDoc(chatID types.ChatID) *firestore.DocumentRef {
	return r.client.Collection("chats").Doc(chatID.String()).
		Collection("__meta").Doc("groupMemory")
}

func (r *groupMemoryRepository) Get(ctx context.Context, chatID types.ChatID) (*model.GroupMemory, error) {
	doc, err := r.summaryDoc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "group memory not found", goerr.V("chatID", chatID))
		}
		return nil, goerr.Wrap(err, "failed to get group memory", goerr.V("chatID", chatID))
	}

	var d groupMemoryDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal group memory", goerr.V("chatID", chatID))
	}

	sources := make([]types.MemoryID, 0, len(d.Sources))
	for _, s := range d.Sources {
		sources = append(sources, types.MemoryID(s))
	}

	return &model.GroupMemory{
		Purpose:     d.Purpose,
		Goals:       d.Goals,
		Alignment:   d.Alignment,
		Summary:     d.Summary,
		Risks:       d.Risks,
		SourceCount: d.SourceCount,
		Sources:     sources,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

func (r *groupMemoryRepository) Merge(ctx context.Context, chatID types.ChatID, patch model.GroupMemoryPatch) error {
	if err := chatID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to merge group memory")
	}

	// Only fields the patch carries go into the merge set, so fields the
	// model omitted keep their stored values.
	data := map[string]any{
		"sourceCount": patch.SourceCount,
		"sources":     memoryIDStrings(patch.Sources),
		"updatedAt":   patch.UpdatedAt,
	}
	if patch.Purpose != nil {
		data["purpose"] = *patch.Purpose
	}
	if patch.Goals != nil {
		data["goals"] = patch.Goals
	}
	if patch.Alignment != nil {
		data["alignment"] = *patch.Alignment
	}
	if patch.Summary != nil {
		data["summary"] = *patch.Summary
	}
	if patch.Risks != nil {
		data["risks"] = patch.Risks
	}

	if _, err := r.summaryDoc(chatID).Set(ctx, data, firestore.MergeAll); err != nil {
		return goerr.Wrap(err, "failed to merge group memory", goerr.V("chatID", chatID))
	}

	return nil
}

func memoryIDStrings(ids []types.MemoryID) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.String())
	}
	return result
}
