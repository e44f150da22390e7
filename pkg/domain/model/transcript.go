package model

import "time"

// TranscriptEntry is the compact, model-facing rendering of a message.
// The JSON tags define the shape serialized into the user prompt.
type TranscriptEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTranscript renders messages fetched newest-first into an
// oldest-first transcript. A missing user name becomes an empty string
// so the prompt stays well-typed.
func NewTranscript(newestFirst []*Message) []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		entries = append(entries, TranscriptEntry{
			ID:        m.ID.String(),
			UserID:    m.UserID.String(),
			UserName:  m.UserName,
			Text:      m.Text,
			CreatedAt: m.CreatedAt,
		})
	}
	return entries
}
