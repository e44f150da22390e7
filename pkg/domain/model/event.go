package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// MessageWriteEvent is one write delivery for a message document:
// a before/after snapshot pair for a single document ID. A nil Before
// means creation, a nil After means deletion.
type MessageWriteEvent struct {
	ChatID    types.ChatID
	MessageID types.MessageID
	Before    *Message
	After     *Message
}

// Validate checks if the MessageWriteEvent is valid
func (e *MessageWriteEvent) Validate() error {
	if err := e.ChatID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message write event")
	}
	if err := e.MessageID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message write event")
	}
	return nil
}

// UserCreatedEvent is one account-creation delivery from the identity
// provider.
type UserCreatedEvent struct {
	UserID      types.UserID
	Email       string
	DisplayName string
	PhotoURL    string
}

// Validate checks if the UserCreatedEvent is valid
func (e *UserCreatedEvent) Validate() error {
	if err := e.UserID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user created event")
	}
	return nil
}
