package types

import "github.com/m-mizutani/goerr/v2"

// MemoryScope selects the owner of memory records extracted by the
// moderation pipeline. It is fixed per deployment.
type MemoryScope string

const (
	// MemoryScopeChat stores memory under chats/{chatId}/memory
	MemoryScopeChat MemoryScope = "chat"

	// MemoryScopeUser stores memory under users/{uid}/memory
	MemoryScopeUser MemoryScope = "user"
)

// IsValid checks if the memory scope is valid
func (s MemoryScope) IsValid() bool {
	switch s {
	case MemoryScopeChat, MemoryScopeUser:
		return true
	default:
		return false
	}
}

// Normalize returns the scope, treating empty as MemoryScopeChat.
func (s MemoryScope) Normalize() MemoryScope {
	if s == "" {
		return MemoryScopeChat
	}
	return s
}

// String returns the string representation of the memory scope
func (s MemoryScope) String() string {
	return string(s)
}

// ParseMemoryScope parses a string into a MemoryScope
func ParseMemoryScope(s string) (MemoryScope, error) {
	scope := MemoryScope(s).Normalize()
	if !scope.IsValid() {
		return "", goerr.New("invalid memory scope", goerr.V("scope", s))
	}
	return scope, nil
}
