package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/repository/memory"
	"github.com/secmon-lab/chatwarden/pkg/usecase"
)

// stubLLM is a scripted ChatCompletion for tests.
type stubLLM struct {
	mu sync.Mutex

	toolCalls []model.ToolCall
	toolErr   error
	toolCount int

	jsonContent string
	jsonErr     error
	jsonCount   int
}

var _ interfaces.ChatCompletion = &stubLLM{}

func (s *stubLLM) ToolCompletion(ctx context.Context, system, user string, tools []interfaces.ToolSpec) ([]model.ToolCall, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toolCount++
	if s.toolErr != nil {
		return nil, s.toolErr
	}
	return s.toolCalls, nil
}

func (s *stubLLM) JSONCompletion(ctx context.Context, system, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jsonCount++
	if s.jsonErr != nil {
		return "", s.jsonErr
	}
	return s.jsonContent, nil
}

func (s *stubLLM) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.toolCount, s.jsonCount
}

func putMessage(t *testing.T, repo interfaces.Repository, chatID types.ChatID, messageID types.MessageID, text string) *model.Message {
	t.Helper()
	msg, err := repo.Message().Put(context.Background(), &model.Message{
		ID:        messageID,
		ChatID:    chatID,
		Text:      text,
		UserID:    "u1",
		UserName:  "Alice",
		CreatedAt: time.Now().UTC(),
	})
	gt.NoError(t, err).Required()
	return msg
}

func writeEvent(msg *model.Message) *model.MessageWriteEvent {
	return &model.MessageWriteEvent{
		ChatID:    msg.ChatID,
		MessageID: msg.ID,
		After:     msg,
	}
}

func TestHandleMessageWrite(t *testing.T) {
	t.Run("no tool calls marks message clean", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello everyone")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()

		toolCount, _ := llm.counts()
		gt.Number(t, toolCount).Equal(1)
	})

	t.Run("flag call marks message flagged with reason", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolFlagInappropriate,
				Arguments: `{"chatId":"c1","messageId":"m1","reason":"harassment"}`,
			}},
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "offensive text")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).True()
		gt.Value(t, stored.Moderation.Reason).Equal("harassment")
		gt.Value(t, stored.Moderation.FlaggedAt).NotNil()
	})

	t.Run("flag for a different message is ignored", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolFlagInappropriate,
				Arguments: `{"chatId":"c1","messageId":"m0","reason":"old grudge"}`,
			}},
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		older := putMessage(t, repo, "c1", "m0", "earlier message")
		msg := putMessage(t, repo, "c1", "m1", "current message")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		// The current message reaches the clean terminal state; the
		// context message it tried to flag is untouched.
		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()

		untouched, err := repo.Message().Get(ctx, "c1", older.ID)
		gt.NoError(t, err).Required()
		gt.Bool(t, untouched.Moderation.Flagged).False()
	})

	t.Run("writeMemory stores fact and triggers consolidation", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolWriteMemory,
				Arguments: `{"chatId":"c1","memory":"Alice is vegetarian"}`,
			}},
			jsonContent: `{"summary":"The group coordinates shared meals"}`,
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "I don't eat meat by the way")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		entries, err := repo.Memory().ListRecent(ctx, model.ChatMemoryOwner("c1"), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)
		gt.Value(t, entries[0].Text).Equal("Alice is vegetarian")
		gt.Value(t, entries[0].SourceMessageID).Equal(types.MessageID("m1"))

		summary, err := repo.GroupMemory().Get(ctx, "c1")
		gt.NoError(t, err).Required()
		gt.Value(t, summary.Summary).Equal("The group coordinates shared meals")
		gt.Number(t, summary.SourceCount).Equal(1)

		// Memory alone does not flag the message.
		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()
	})

	t.Run("consolidation failure does not fail message processing", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolWriteMemory,
				Arguments: `{"chatId":"c1","memory":"Bob plays guitar"}`,
			}},
			jsonErr: errors.New("consolidation model down"),
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "I picked up guitar again")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		// The fact survives even though stage two failed.
		entries, err := repo.Memory().ListRecent(ctx, model.ChatMemoryOwner("c1"), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
	})

	t.Run("user memory scope skips consolidation", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolWriteMemory,
				Arguments: `{"chatId":"c1","memory":"Alice runs marathons"}`,
			}},
		}
		cfg := config.Default()
		cfg.MemoryScope = types.MemoryScopeUser
		uc := usecase.New(repo, usecase.WithLLM(llm), usecase.WithConfig(cfg))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "signed up for another marathon")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		entries, err := repo.Memory().ListRecent(ctx, model.UserMemoryOwner("u1"), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(1)

		_, jsonCount := llm.counts()
		gt.Number(t, jsonCount).Equal(0)
	})

	t.Run("completion failure leaves message unchecked", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{toolErr: errors.New("upstream 500")}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")
		err := uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))
		gt.Value(t, err).NotNil()

		stored, getErr := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, getErr).Required()
		gt.Bool(t, stored.Moderation.Checked).False()
	})

	t.Run("invalid tool call is skipped, message still terminal", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{
				{Name: "unknownTool", Arguments: `{}`},
				{Name: model.ToolFlagInappropriate, Arguments: `{"chatId":`},
			},
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()
	})

	t.Run("checked message is never re-evaluated", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")
		msg.Moderation = model.CheckedClean()

		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		toolCount, _ := llm.counts()
		gt.Number(t, toolCount).Equal(0)
	})

	t.Run("moderation-only write does not re-trigger", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		before := putMessage(t, repo, "c1", "m1", "hello")
		after := *before
		after.Moderation = model.CheckedFlagged("spam", time.Now().UTC())

		ev := &model.MessageWriteEvent{
			ChatID:    "c1",
			MessageID: "m1",
			Before:    before,
			After:     &after,
		}
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, ev)).Required()

		toolCount, _ := llm.counts()
		gt.Number(t, toolCount).Equal(0)
	})

	t.Run("clean re-evaluation retracts a stale flag", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		before := putMessage(t, repo, "c1", "m1", "rude original")
		gt.NoError(t, repo.Message().UpdateModeration(ctx, "c1", "m1", model.CheckedFlagged("rude", time.Now().UTC()))).Required()

		// The user edits the text; the write resets checked to false.
		edited := *before
		edited.Text = "polite replacement"
		edited.Moderation = model.Unchecked()
		ev := &model.MessageWriteEvent{
			ChatID:    "c1",
			MessageID: "m1",
			Before:    before,
			After:     &edited,
		}
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, ev)).Required()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()
		gt.Value(t, stored.Moderation.Reason).Equal("")
		gt.Value(t, stored.Moderation.FlaggedAt).Nil()
	})

	t.Run("missing completion client marks message clean", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()
	})

	t.Run("respond tool records pre-checked assistant message", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolRespondToChat,
				Arguments: `{"chatId":"c1","messageId":"m1","text":"Welcome aboard!"}`,
			}},
		}
		cfg := config.Default()
		cfg.AssistantName = "Warden"
		uc := usecase.New(repo, usecase.WithLLM(llm), usecase.WithConfig(cfg))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hi, I just joined")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		messages, err := repo.Message().ListRecent(ctx, "c1", 10)
		gt.NoError(t, err).Required()
		gt.Array(t, messages).Length(2)

		var reply *model.Message
		for _, m := range messages {
			if m.UserID == usecase.AssistantUserID {
				reply = m
			}
		}
		gt.Value(t, reply).NotNil().Required()
		gt.Value(t, reply.Text).Equal("Welcome aboard!")
		gt.Value(t, reply.UserName).Equal("Warden")

		// The stored reply never re-enters the evaluation loop.
		gt.Bool(t, reply.Moderation.Checked).True()
		gt.Bool(t, model.ShouldEvaluate(nil, reply)).False()
	})

	t.Run("empty memory text is dropped", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{
			toolCalls: []model.ToolCall{{
				Name:      model.ToolWriteMemory,
				Arguments: `{"chatId":"c1","memory":"   "}`,
			}},
		}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")
		gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg))).Required()

		entries, err := repo.Memory().ListRecent(ctx, model.ChatMemoryOwner("c1"), 10)
		gt.NoError(t, err).Required()
		gt.Array(t, entries).Length(0)
	})

	t.Run("concurrent deliveries both reach a terminal state", func(t *testing.T) {
		repo := memory.New()
		llm := &stubLLM{}
		uc := usecase.New(repo, usecase.WithLLM(llm))
		ctx := context.Background()

		msg := putMessage(t, repo, "c1", "m1", "hello")

		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				gt.NoError(t, uc.Moderation.HandleMessageWrite(ctx, writeEvent(msg)))
			}()
		}
		wg.Wait()

		stored, err := repo.Message().Get(ctx, "c1", "m1")
		gt.NoError(t, err).Required()
		gt.Bool(t, stored.Moderation.Checked).True()
		gt.Bool(t, stored.Moderation.Flagged).False()
	})
}
