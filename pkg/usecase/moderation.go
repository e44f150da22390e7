package usecase

import (
	"bytes"
	"context"
	_ "embed"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
)

//go:embed prompt/moderation_system.md
var moderationSystemPromptTmpl string

var moderationSystemPrompt = template.Must(template.New("moderation_system").Parse(moderationSystemPromptTmpl))

// AssistantUserID is the author recorded on replies the model requests
// via respondToChat.
const AssistantUserID = types.UserID("assistant")

// FactSink consumes "fact written" notifications from the moderation
// stage. Its failures are logged at the moderation boundary and cannot
// roll back the fact that was already written.
type FactSink interface {
	FactWritten(ctx context.Context, chatID types.ChatID) error
}

// ModerationUseCase is the trigger dispatcher and per-message state
// machine: it decides whether a message write needs evaluation, invokes
// the model with the transcript and tool catalog, applies the returned
// commands, and marks the message checked.
type ModerationUseCase struct {
	repo  interfaces.Repository
	llm   interfaces.ChatCompletion
	cfg   *config.Moderation
	facts FactSink
}

// NewModerationUseCase creates a new ModerationUseCase. llm may be nil
// when no completion client is configured; facts may be nil to disable
// consolidation.
func NewModerationUseCase(repo interfaces.Repository, llm interfaces.ChatCompletion, cfg *config.Moderation, facts FactSink) *ModerationUseCase {
	return &ModerationUseCase{
		repo:  repo,
		llm:   llm,
		cfg:   cfg,
		facts: facts,
	}
}

// HandleMessageWrite processes one before/after write delivery for a
// message document. A returned error means the evaluation did not reach
// a terminal state: the message is left unchecked and a later write (or
// platform redelivery) re-triggers it.
func (uc *ModerationUseCase) HandleMessageWrite(ctx context.Context, ev *model.MessageWriteEvent) error {
	logger := logging.From(ctx)

	if err := ev.Validate(); err != nil {
		return goerr.Wrap(err, "invalid message write event")
	}

	if !model.ShouldEvaluate(ev.Before, ev.After) {
		logger.Debug("skipping message write",
			"chatID", ev.ChatID,
			"messageID", ev.MessageID,
		)
		return nil
	}

	// No completion client is a cold-start configuration state, not a
	// transient failure: mark the message clean instead of re-evaluating
	// it forever.
	if uc.llm == nil {
		logger.Warn("completion client not configured, marking message clean",
			"chatID", ev.ChatID,
			"messageID", ev.MessageID,
		)
		return uc.markClean(ctx, ev)
	}

	transcript, err := uc.buildTranscript(ctx, ev.ChatID)
	if err != nil {
		return goerr.Wrap(err, "failed to assemble transcript", goerr.V("chatID", ev.ChatID))
	}

	system, err := uc.buildSystemPrompt()
	if err != nil {
		return goerr.Wrap(err, "failed to build system prompt")
	}
	user, err := buildUserPrompt(transcript, ev.MessageID)
	if err != nil {
		return goerr.Wrap(err, "failed to build user prompt")
	}

	calls, err := uc.llm.ToolCompletion(ctx, system, user, moderationTools(uc.cfg.RespondEnabled()))
	if err != nil {
		// No response this cycle. The message stays unchecked so a later
		// write re-triggers evaluation; marking it clean here would be a
		// false verdict.
		return goerr.Wrap(err, "completion call failed",
			goerr.V("chatID", ev.ChatID),
			goerr.V("messageID", ev.MessageID),
		)
	}

	flagApplied := false
	for _, call := range calls {
		cmd, err := model.ParseCommand(call)
		if err != nil {
			logger.Warn("skipping invalid tool call",
				"name", call.Name,
				"error", err.Error(),
			)
			continue
		}

		applied, err := uc.applyCommand(ctx, ev, cmd)
		if err != nil {
			return err
		}
		if applied {
			flagApplied = true
		}
	}

	if !flagApplied {
		return uc.markClean(ctx, ev)
	}

	return nil
}

// applyCommand executes one validated command. The returned bool reports
// whether a flag was applied to the message being processed.
func (uc *ModerationUseCase) applyCommand(ctx context.Context, ev *model.MessageWriteEvent, cmd model.Command) (bool, error) {
	logger := logging.From(ctx)

	switch c := cmd.(type) {
	case model.FlagCommand:
		// Self-flag guard: the model may only flag the message under
		// evaluation, never one it merely saw as context.
		if c.MessageID != ev.MessageID {
			logger.Info("ignoring flag for different message",
				"flaggedMessageID", c.MessageID,
				"currentMessageID", ev.MessageID,
			)
			return false, nil
		}

		mod := model.CheckedFlagged(c.Reason, time.Now().UTC())
		if err := uc.repo.Message().UpdateModeration(ctx, ev.ChatID, ev.MessageID, mod); err != nil {
			return false, goerr.Wrap(err, "failed to flag message",
				goerr.V("chatID", ev.ChatID),
				goerr.V("messageID", ev.MessageID),
			)
		}
		logger.Info("flagged message",
			"chatID", ev.ChatID,
			"messageID", ev.MessageID,
			"reason", c.Reason,
		)
		return true, nil

	case model.WriteMemoryCommand:
		text := strings.TrimSpace(c.Memory)
		if text == "" {
			return false, nil
		}
		if err := uc.writeMemory(ctx, ev, text); err != nil {
			return false, err
		}
		return false, nil

	case model.RespondCommand:
		if c.MessageID != ev.MessageID {
			logger.Info("ignoring reply for different message",
				"requestedMessageID", c.MessageID,
				"currentMessageID", ev.MessageID,
			)
			return false, nil
		}
		if err := uc.recordReply(ctx, ev.ChatID, c.Text); err != nil {
			return false, err
		}
		return false, nil

	default:
		logger.Warn("ignoring unsupported command")
		return false, nil
	}
}

func (uc *ModerationUseCase) writeMemory(ctx context.Context, ev *model.MessageWriteEvent, text string) error {
	logger := logging.From(ctx)

	owner := model.ChatMemoryOwner(ev.ChatID)
	if uc.cfg.MemoryScope == types.MemoryScopeUser {
		owner = model.UserMemoryOwner(ev.After.UserID)
	}

	entry := &model.MemoryEntry{
		Text:            text,
		SourceMessageID: ev.MessageID,
		ChatID:          ev.ChatID,
	}
	if _, err := uc.repo.Memory().Append(ctx, owner, entry); err != nil {
		return goerr.Wrap(err, "failed to write memory",
			goerr.V("chatID", ev.ChatID),
			goerr.V("messageID", ev.MessageID),
		)
	}
	logger.Info("wrote memory entry", "chatID", ev.ChatID, "scope", owner.Scope)

	// Stage two runs behind the sink boundary: its failure is logged and
	// never aborts message processing. Group memory is a per-chat
	// derivation, so user-scoped deployments skip it.
	if uc.facts != nil && owner.Scope.Normalize() == types.MemoryScopeChat {
		if err := uc.facts.FactWritten(ctx, ev.ChatID); err != nil {
			logger.Warn("group memory consolidation failed",
				"chatID", ev.ChatID,
				"error", err.Error(),
			)
		}
	}

	return nil
}

// recordReply stores the requested assistant response as a chat message.
// Delivery to clients is the chat UI's concern; the stored message is
// pre-checked so it never re-enters the moderation loop.
func (uc *ModerationUseCase) recordReply(ctx context.Context, chatID types.ChatID, text string) error {
	msg := &model.Message{
		ChatID:     chatID,
		Text:       text,
		UserID:     AssistantUserID,
		UserName:   uc.cfg.AssistantName,
		Moderation: model.CheckedClean(),
	}
	if _, err := uc.repo.Message().Put(ctx, msg); err != nil {
		return goerr.Wrap(err, "failed to record assistant reply", goerr.V("chatID", chatID))
	}
	logging.From(ctx).Info("recorded assistant reply", "chatID", chatID)
	return nil
}

// markClean writes the clean terminal state, replacing the whole
// moderation record so any stale flag from a prior evaluation is
// retracted.
func (uc *ModerationUseCase) markClean(ctx context.Context, ev *model.MessageWriteEvent) error {
	if err := uc.repo.Message().UpdateModeration(ctx, ev.ChatID, ev.MessageID, model.CheckedClean()); err != nil {
		return goerr.Wrap(err, "failed to mark message checked",
			goerr.V("chatID", ev.ChatID),
			goerr.V("messageID", ev.MessageID),
		)
	}
	return nil
}

func (uc *ModerationUseCase) buildSystemPrompt() (string, error) {
	var buf bytes.Buffer
	err := moderationSystemPrompt.Execute(&buf, map[string]any{
		"AssistantName": uc.cfg.AssistantName,
		"Rules":         uc.cfg.Rules,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to render moderation system prompt")
	}
	return buf.String(), nil
}
