package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// ChatID represents a unique identifier for a chat
type ChatID string

// Validate checks if the ChatID is valid
func (x ChatID) Validate() error {
	if x == "" {
		return goerr.New("chat ID cannot be empty")
	}
	return nil
}

// String returns the string representation of ChatID
func (x ChatID) String() string {
	return string(x)
}

// MessageID represents a unique identifier for a chat message
type MessageID string

// NewMessageID generates a new UUID v4 MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

// Validate checks if the MessageID is valid
func (x MessageID) Validate() error {
	if x == "" {
		return goerr.New("message ID cannot be empty")
	}
	return nil
}

// String returns the string representation of MessageID
func (x MessageID) String() string {
	return string(x)
}

// MemoryID represents a unique identifier for a memory entry
type MemoryID string

// NewMemoryID generates a new UUID v4 MemoryID
func NewMemoryID() MemoryID {
	return MemoryID(uuid.New().String())
}

// String returns the string representation of MemoryID
func (x MemoryID) String() string {
	return string(x)
}

// UserID represents a unique identifier for a user
type UserID string

// Validate checks if the UserID is valid
func (x UserID) Validate() error {
	if x == "" {
		return goerr.New("user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of UserID
func (x UserID) String() string {
	return string(x)
}
