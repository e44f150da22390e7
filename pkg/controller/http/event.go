package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/utils/errutil"
)

// messageSnapshot is the wire form of one message document state inside
// a write delivery. Field names follow the document shape.
type messageSnapshot struct {
	Text       string              `json:"text"`
	UserID     string              `json:"userId"`
	UserName   string              `json:"userName"`
	CreatedAt  time.Time           `json:"createdAt"`
	Moderation *moderationSnapshot `json:"moderation"`
}

type moderationSnapshot struct {
	Checked   bool       `json:"checked"`
	Flagged   bool       `json:"flagged"`
	Reason    string     `json:"reason"`
	FlaggedAt *time.Time `json:"flaggedAt"`
}

// messageWritePayload is one "on write" delivery: the document path
// parameters plus before/after snapshots. A missing before means
// creation, a missing after means deletion.
type messageWritePayload struct {
	ChatID    string           `json:"chatId"`
	MessageID string           `json:"messageId"`
	Before    *messageSnapshot `json:"before"`
	After     *messageSnapshot `json:"after"`
}

func (p *messageWritePayload) toEvent() *model.MessageWriteEvent {
	return &model.MessageWriteEvent{
		ChatID:    types.ChatID(p.ChatID),
		MessageID: types.MessageID(p.MessageID),
		Before:    toMessage(p, p.Before),
		After:     toMessage(p, p.After),
	}
}

func toMessage(p *messageWritePayload, snap *messageSnapshot) *model.Message {
	if snap == nil {
		return nil
	}

	msg := &model.Message{
		ID:        types.MessageID(p.MessageID),
		ChatID:    types.ChatID(p.ChatID),
		Text:      snap.Text,
		UserID:    types.UserID(snap.UserID),
		UserName:  snap.UserName,
		CreatedAt: snap.CreatedAt,
	}
	if snap.Moderation != nil {
		msg.Moderation = model.Moderation{
			Checked:   snap.Moderation.Checked,
			Flagged:   snap.Moderation.Flagged,
			Reason:    snap.Moderation.Reason,
			FlaggedAt: snap.Moderation.FlaggedAt,
		}
	}
	return msg
}

func (s *Server) handleMessageWrite(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload messageWritePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode message write payload"), http.StatusBadRequest)
		return
	}

	ev := payload.toEvent()
	if err := ev.Validate(); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	// A 5xx response asks the platform to redeliver; the message stays
	// unchecked until an evaluation reaches a terminal state.
	if err := s.uc.Moderation.HandleMessageWrite(ctx, ev); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// userCreatedPayload is one "on account create" delivery from the
// identity provider.
type userCreatedPayload struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (s *Server) handleUserCreated(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload userCreatedPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to decode user created payload"), http.StatusBadRequest)
		return
	}

	ev := &model.UserCreatedEvent{
		UserID:      types.UserID(payload.UID),
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
		PhotoURL:    payload.PhotoURL,
	}
	if err := ev.Validate(); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusBadRequest)
		return
	}

	if err := s.uc.Provision.HandleUserCreated(ctx, ev); err != nil {
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
