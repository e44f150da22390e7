package memory

import (
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
)

// Memory is an in-memory Repository implementation for development and
// tests. It mirrors the Firestore backend's semantics, including
// last-write-wins on concurrent moderation updates.
type Memory struct {
	message     *messageRepository
	memoryEntry *memoryEntryRepository
	groupMemory *groupMemoryRepository
	chat        *chatRepository
	user        *userRepository
}

var _ interfaces.Repository = &Memory{}

// New creates a new in-memory repository
func New() *Memory {
	return &Memory{
		message:     newMessageRepository(),
		memoryEntry: newMemoryEntryRepository(),
		groupMemory: newGroupMemoryRepository(),
		chat:        newChatRepository(),
		user:        newUserRepository(),
	}
}

func (m *Memory) Message() interfaces.MessageRepository {
	return m.message
}

func (m *Memory) Memory() interfaces.MemoryRepository {
	return m.memoryEntry
}

func (m *Memory) GroupMemory() interfaces.GroupMemoryRepository {
	return m.groupMemory
}

func (m *Memory) Chat() interfaces.ChatRepository {
	return m.chat
}

func (m *Memory) User() interfaces.UserRepository {
	return m.user
}

func (m *Memory) Close() error {
	return nil
}
