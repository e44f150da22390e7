package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// buildTranscript fetches the most recent messages of the chat and
// renders them oldest-first for model input.
func (uc *ModerationUseCase) buildTranscript(ctx context.Context, chatID types.ChatID) ([]model.TranscriptEntry, error) {
	messages, err := uc.repo.Message().ListRecent(ctx, chatID, uc.cfg.TranscriptLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list recent messages", goerr.V("chatID", chatID))
	}

	return model.NewTranscript(messages), nil
}

func buildUserPrompt(transcript []model.TranscriptEntry, messageID types.MessageID) (string, error) {
	raw, err := json.Marshal(transcript)
	if err != nil {
		return "", goerr.Wrap(err, "failed to marshal transcript")
	}

	return fmt.Sprintf(
		"Here is the latest chat transcript (oldest first) as a JSON array. "+
			"Analyze for policy violations and useful memory. "+
			"If the most recent message is hateful or offensive, call flagInappropriate with a concise reason. "+
			"If there are important details about user preferences or goals, call writeMemory with a short sentence.\n\n"+
			"Transcript: %s\n\n"+
			"Focus on the most recent message id: %s.",
		raw, messageID,
	), nil
}
