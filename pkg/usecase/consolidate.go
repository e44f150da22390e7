package usecase

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
)

//go:embed prompt/group_memory_system.md
var groupMemorySystemPrompt string

// ConsolidateUseCase re-derives a chat's group memory summary from its
// accumulated memory entries. It is the second stage of the pipeline,
// consuming fact-written notifications from the moderation stage.
type ConsolidateUseCase struct {
	repo  interfaces.Repository
	llm   interfaces.ChatCompletion
	limit int
}

var _ FactSink = &ConsolidateUseCase{}

// NewConsolidateUseCase creates a new ConsolidateUseCase. limit bounds
// the memory window read per run.
func NewConsolidateUseCase(repo interfaces.Repository, llm interfaces.ChatCompletion, limit int) *ConsolidateUseCase {
	return &ConsolidateUseCase{
		repo:  repo,
		llm:   llm,
		limit: limit,
	}
}

// FactWritten implements FactSink.
func (uc *ConsolidateUseCase) FactWritten(ctx context.Context, chatID types.ChatID) error {
	return uc.Consolidate(ctx, chatID)
}

// Consolidate recomputes the group memory summary of a chat. It is a
// no-op when the chat has no memory entries. On any failure the stored
// summary is left untouched; there is no partial overwrite.
func (uc *ConsolidateUseCase) Consolidate(ctx context.Context, chatID types.ChatID) error {
	logger := logging.From(ctx)

	if err := chatID.Validate(); err != nil {
		return goerr.Wrap(err, "failed to consolidate group memory")
	}

	entries, err := uc.repo.Memory().ListRecent(ctx, model.ChatMemoryOwner(chatID), uc.limit)
	if err != nil {
		return goerr.Wrap(err, "failed to list memory entries", goerr.V("chatID", chatID))
	}
	if len(entries) == 0 {
		return nil
	}

	if uc.llm == nil {
		logger.Warn("completion client not configured, skipping consolidation", "chatID", chatID)
		return nil
	}

	user, err := buildConsolidationPrompt(entries)
	if err != nil {
		return err
	}

	content, err := uc.llm.JSONCompletion(ctx, groupMemorySystemPrompt, user)
	if err != nil {
		return goerr.Wrap(err, "consolidation completion failed", goerr.V("chatID", chatID))
	}
	if content == "" {
		return nil
	}

	patch, err := model.ParseGroupMemoryDraft(content)
	if err != nil {
		// Malformed model output is not fatal: keep the stale summary.
		logger.Warn("failed to parse group memory JSON",
			"chatID", chatID,
			"error", err.Error(),
		)
		return nil
	}

	patch.SourceCount = len(entries)
	patch.Sources = make([]types.MemoryID, 0, len(entries))
	for _, e := range entries {
		patch.Sources = append(patch.Sources, e.ID)
	}
	patch.UpdatedAt = time.Now().UTC()

	if err := uc.repo.GroupMemory().Merge(ctx, chatID, patch); err != nil {
		return goerr.Wrap(err, "failed to store group memory", goerr.V("chatID", chatID))
	}

	logger.Info("consolidated group memory",
		"chatID", chatID,
		"sourceCount", patch.SourceCount,
	)
	return nil
}

func buildConsolidationPrompt(entries []*model.MemoryEntry) (string, error) {
	type note struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	notes := make([]note, 0, len(entries))
	for _, e := range entries {
		notes = append(notes, note{ID: e.ID.String(), Text: e.Text})
	}

	raw, err := json.Marshal(notes)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal memory notes")
	}

	return fmt.Sprintf(
		"Given the following memory notes (newest first): %s.\n"+
			"Produce the JSON object. If a field is unknown, omit it.",
		raw,
	), nil
}
