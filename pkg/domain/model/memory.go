package model

import (
	"encoding/json"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// MemoryEntry is one immutable fact extracted from a chat message.
// Entries are append-only: the pipeline never updates or deletes them,
// and semantic deduplication is left to the consolidator.
type MemoryEntry struct {
	ID              types.MemoryID
	Text            string
	SourceMessageID types.MessageID
	ChatID          types.ChatID
	CreatedAt       time.Time
}

// MemoryOwner identifies where memory records live. The scope is fixed
// per deployment: per-chat memory under the chat document, or per-user
// memory under the sending user's document.
type MemoryOwner struct {
	Scope  types.MemoryScope
	ChatID types.ChatID
	UserID types.UserID
}

// ChatMemoryOwner returns the owner for per-chat memory.
func ChatMemoryOwner(chatID types.ChatID) MemoryOwner {
	return MemoryOwner{Scope: types.MemoryScopeChat, ChatID: chatID}
}

// UserMemoryOwner returns the owner for per-user memory.
func UserMemoryOwner(userID types.UserID) MemoryOwner {
	return MemoryOwner{Scope: types.MemoryScopeUser, UserID: userID}
}

// Validate checks if the MemoryOwner is valid
func (o MemoryOwner) Validate() error {
	switch o.Scope.Normalize() {
	case types.MemoryScopeChat:
		if err := o.ChatID.Validate(); err != nil {
			return goerr.Wrap(err, "chat-scoped memory owner requires a chat ID")
		}
	case types.MemoryScopeUser:
		if err := o.UserID.Validate(); err != nil {
			return goerr.Wrap(err, "user-scoped memory owner requires a user ID")
		}
	default:
		return goerr.New("invalid memory scope", goerr.V("scope", o.Scope))
	}
	return nil
}

// GroupMemory is the single derived summary document of a chat,
// recomputed from accumulated memory entries.
type GroupMemory struct {
	Purpose   string
	Goals     []string
	Alignment string
	Summary   string
	Risks     []string

	// SourceCount and Sources always reflect the exact memory set used
	// for the recomputation that produced this document.
	SourceCount int
	Sources     []types.MemoryID
	UpdatedAt   time.Time
}

// GroupMemoryPatch is the outcome of one consolidation run. Nil pointer
// and nil slice fields were omitted by the model and must keep their
// previously stored values on merge; SourceCount, Sources and UpdatedAt
// are always written.
type GroupMemoryPatch struct {
	Purpose   *string
	Goals     []string
	Alignment *string
	Summary   *string
	Risks     []string

	SourceCount int
	Sources     []types.MemoryID
	UpdatedAt   time.Time
}

// Apply merges the patch over a stored summary, overwriting only the
// fields the patch carries.
func (p GroupMemoryPatch) Apply(base GroupMemory) GroupMemory {
	if p.Purpose != nil {
		base.Purpose = *p.Purpose
	}
	if p.Goals != nil {
		base.Goals = p.Goals
	}
	if p.Alignment != nil {
		base.Alignment = *p.Alignment
	}
	if p.Summary != nil {
		base.Summary = *p.Summary
	}
	if p.Risks != nil {
		base.Risks = p.Risks
	}
	base.SourceCount = p.SourceCount
	base.Sources = p.Sources
	base.UpdatedAt = p.UpdatedAt
	return base
}

// ParseGroupMemoryDraft parses the JSON object returned by the model in
// JSON mode into a patch. Fields the model omitted stay nil. The model's
// own sourceCount/sources output is ignored: the consolidator overwrites
// both from the entry set it actually read.
func ParseGroupMemoryDraft(content string) (GroupMemoryPatch, error) {
	var draft struct {
		Purpose   *string  `json:"purpose"`
		Goals     []string `json:"goals"`
		Alignment *string  `json:"alignment"`
		Summary   *string  `json:"summary"`
		Risks     []string `json:"risks"`
	}
	if err := json.Unmarshal([]byte(content), &draft); err != nil {
		return GroupMemoryPatch{}, goerr.Wrap(err, "failed to parse group memory JSON", goerr.V("content", content))
	}

	return GroupMemoryPatch{
		Purpose:   draft.Purpose,
		Goals:     draft.Goals,
		Alignment: draft.Alignment,
		Summary:   draft.Summary,
		Risks:     draft.Risks,
	}, nil
}
