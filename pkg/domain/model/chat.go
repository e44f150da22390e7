package model

import (
	"time"

	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// ChatTypeGroup marks a shared multi-user chat.
const ChatTypeGroup = "group"

// Chat represents a chat document. The pipeline only touches it during
// user provisioning (upsert + participant union).
type Chat struct {
	ID           types.ChatID
	Type         string
	Name         string
	Participants []types.UserID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasParticipant reports whether the user already belongs to the chat.
func (c *Chat) HasParticipant(userID types.UserID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
