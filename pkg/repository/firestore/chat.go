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

type chatDoc struct {
	Type         string    `firestore:"type"`
	Name         string    `firestore:"name"`
	Participants []string  `firestore:"participants,omitempty"`
	CreatedAt    time.Time `firestore:"createdAt"`
	UpdatedAt    time.Time `firestore:"updatedAt"`
}

type chatRepository struct {
	client *firestore.Client
}

func newChatRepository(client *firestore.Client) *chatRepository {
	return &chatRepository{client: client}
}

func (r *chatRepository) chatDoc(chatID types.ChatID) *firestore.DocumentRef {
	return r.client.Collection("chats").Doc(chatID.String())
}

func (r *chatRepository) Get(ctx context.Context, chatID types.ChatID) (*model.Chat, error) {
	doc, err := r.chatDoc(chatID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "chat not found", goerr.V("chatID", chatID))
		}
		return nil, goerr.Wrap(err, "failed to get chat", goerr.V("chatID", chatID))
	}

	var d chatDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal chat", goerr.V("chatID", chatID))
	}

	participants := make([]types.UserID, 0, len(d.Participants))
	for _, p := range d.Participants {
		participants = append(participants, types.UserID(p))
	}

	return &model.Chat{
		ID:           chatID,
		Type:         d.Type,
		Name:         d.Name,
		Participants: participants,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}, nil
}

func (r *chatRepository) Upsert(ctx context.Context, chat *model.Chat) error {
	if err := chat.ID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to upsert chat")
	}

	now := time.Now().UTC()
	data := map[string]any{
		"type":      chat.Type,
		"name":      chat.Name,
		"updatedAt": now,
	}

	if _, err := r.chatDoc(chat.ID).Get(ctx); err != nil {
		if status.Code(err) != codes.NotFound {
			return goerr.Wrap(err, "failed to get chat", goerr.V("chatID", chat.ID))
		}
		data["createdAt"] = now
	}

	if _, err := r.chatDoc(chat.ID).Set(ctx, data, firestore.MergeAll); err != nil {
		return goerr.Wrap(err, "failed to upsert chat", goerr.V("chatID", chat.ID))
	}

	return nil
}

func (r *chatRepository) AddParticipant(ctx context.Context, chatID types.ChatID, userID types.UserID) error {
	updates := []firestore.Update{
		{Path: "participants", Value: firestore.ArrayUnion(userID.String())},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}

	if _, err := r.chatDoc(chatID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "chat not found", goerr.V("chatID", chatID))
		}
		return goerr.Wrap(err, "failed to add participant",
			goerr.V("chatID", chatID),
			goerr.V("userID", userID),
		)
	}

	return nil
}
