package model

import (
	"time"

	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// Message represents a chat message document. The client app creates it;
// the moderation pipeline only ever mutates the Moderation field.
type Message struct {
	ID        types.MessageID
	ChatID    types.ChatID
	Text      string
	UserID    types.UserID
	UserName  string
	CreatedAt time.Time

	Moderation Moderation
}

// Moderation is the per-message moderation state embedded in a Message.
// Checked is the sole idempotency flag: once true, the dispatcher never
// re-invokes the model for that exact message state.
type Moderation struct {
	Checked   bool
	Flagged   bool
	Reason    string
	FlaggedAt *time.Time
}

// Unchecked returns the initial moderation state.
func Unchecked() Moderation {
	return Moderation{}
}

// CheckedClean returns the terminal state for an evaluated message with
// no violation. All flag fields are zero so a merge replacing the whole
// moderation record retracts any stale prior flag.
func CheckedClean() Moderation {
	return Moderation{Checked: true}
}

// CheckedFlagged returns the terminal state for a policy violation.
func CheckedFlagged(reason string, at time.Time) Moderation {
	return Moderation{
		Checked:   true,
		Flagged:   true,
		Reason:    reason,
		FlaggedAt: &at,
	}
}

// ShouldEvaluate is the dispatcher's pure gate over a before/after pair.
// It returns false when: the document was deleted, the after state is
// already checked, the message has no text, or the write did not change
// the text of an existing message (moderation writes themselves fall in
// this last bucket, which is what breaks the re-trigger loop).
func ShouldEvaluate(before, after *Message) bool {
	if after == nil {
		return false
	}
	if after.Moderation.Checked {
		return false
	}
	if after.Text == "" {
		return false
	}
	if before != nil && before.Text == after.Text {
		return false
	}
	return true
}
