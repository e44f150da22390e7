package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// moderationDoc is the moderation record embedded in a message document.
// Field names match the client app's document shape.
type moderationDoc struct {
	Checked   bool       `firestore:"checked"`
	Flagged   bool       `firestore:"flagged,omitempty"`
	Reason    string     `firestore:"reason,omitempty"`
	FlaggedAt *time.Time `firestore:"flaggedAt,omitempty"`
}

type messageDoc struct {
	Text       string         `firestore:"text"`
	UserID     string         `firestore:"userId"`
	UserName   string         `firestore:"userName,omitempty"`
	CreatedAt  time.Time      `firestore:"createdAt"`
	Moderation *moderationDoc `firestore:"moderation,omitempty"`
}

func toMessageDoc(m *model.Message) *messageDoc {
	doc := &messageDoc{
		Text:      m.Text,
		UserID:    m.UserID.String(),
		UserName:  m.UserName,
		CreatedAt: m.CreatedAt,
	}
	if m.Moderation.Checked {
		doc.Moderation = toModerationDoc(m.Moderation)
	}
	return doc
}

func toModerationDoc(mod model.Moderation) *moderationDoc {
	doc := &moderationDoc{
		Checked: mod.Checked,
		Flagged: mod.Flagged,
		Reason:  mod.Reason,
	}
	if mod.FlaggedAt != nil {
		at := *mod.FlaggedAt
		doc.FlaggedAt = &at
	}
	return doc
}

func fromMessageDoc(id types.MessageID, chatID types.ChatID, d *messageDoc) *model.Message {
	m := &model.Message{
		ID:        id,
		ChatID:    chatID,
		Text:      d.Text,
		UserID:    types.UserID(d.UserID),
		UserName:  d.UserName,
		CreatedAt: d.CreatedAt,
	}
	if d.Moderation != nil {
		m.Moderation = model.Moderation{
			Checked:   d.Moderation.Checked,
			Flagged:   d.Moderation.Flagged,
			Reason:    d.Moderation.Reason,
			FlaggedAt: d.Moderation.FlaggedAt,
		}
	}
	return m
}

type messageRepository struct {
	client *firestore.Client
}

func newMessageRepository(client *firestore.Client) *messageRepository {
	return &messageRepository{client: client}
}

// messagesCollection returns chats/{chatId}/messages
func (r *messageRepository) messagesCollection(chatID types.ChatID) *firestore.CollectionRef {
	return r.client.Collection("chats").Doc(chatID.String()).Collection("messages")
}

func (r *messageRepository) Get(ctx context.Context, chatID types.ChatID, messageID types.MessageID) (*model.Message, error) {
	doc, err := r.messagesCollection(chatID).Doc(messageID.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
		}
		return nil, goerr.Wrap(err, "failed to get message", goerr.V("messageID", messageID))
	}

	var d messageDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal message", goerr.V("messageID", messageID))
	}

	return fromMessageDoc(messageID, chatID, &d), nil
}

func (r *messageRepository) Put(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if err := msg.ChatID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "failed to put message")
	}

	stored := *msg
	if stored.ID == "" {
		stored.ID = types.NewMessageID()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	docRef := r.messagesCollection(stored.ChatID).Doc(stored.ID.String())
	if _, err := docRef.Set(ctx, toMessageDoc(&stored)); err != nil {
		return nil, goerr.Wrap(err, "failed to put message", goerr.V("messageID", stored.ID))
	}

	return &stored, nil
}

func (r *messageRepository) ListRecent(ctx context.Context, chatID types.ChatID, limit int) ([]*model.Message, error) {
	iter := r.messagesCollection(chatID).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	messages := make([]*model.Message, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages", goerr.V("chatID", chatID))
		}

		var d messageDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal message", goerr.V("chatID", chatID))
		}

		messages = append(messages, fromMessageDoc(types.MessageID(doc.Ref.ID), chatID, &d))
	}

	return messages, nil
}

func (r *messageRepository) UpdateModeration(ctx context.Context, chatID types.ChatID, messageID types.MessageID, mod model.Moderation) error {
	docRef := r.messagesCollection(chatID).Doc(messageID.String())

	if _, err := docRef.Get(ctx); err != nil {
		if status.Code(err) == codes.NotFound {
			return goerr.Wrap(ErrNotFound, "message not found", goerr.V("messageID", messageID))
		}
		return goerr.Wrap(err, "failed to get message", goerr.V("messageID", messageID))
	}

	// Merge at the moderation path replaces the whole moderation map,
	// so a clean record wipes any stale flagged/reason/flaggedAt fields.
	data := map[string]any{
		"moderation": toModerationDoc(mod),
	}
	if _, err := docRef.Set(ctx, data, firestore.Merge(firestore.FieldPath{"moderation"})); err != nil {
		return goerr.Wrap(err, "failed to update moderation",
			goerr.V("chatID", chatID),
			goerr.V("messageID", messageID),
		)
	}

	return nil
}
