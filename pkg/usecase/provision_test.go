package usecase_test

import (
	"context"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
	"github.com/secmon-lab/chatwarden/pkg/repository/memory"
	"github.com/secmon-lab/chatwarden/pkg/usecase"
)

func TestHandleUserCreated(t *testing.T) {
	t.Run("creates profile and joins general chat", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		ctx := context.Background()

		ev := &model.UserCreatedEvent{
			UserID:      "u1",
			Email:       "alice@example.com",
			DisplayName: "Alice",
			PhotoURL:    "https://example.com/alice.png",
		}
		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, ev)).Required()

		user, err := repo.User().Get(ctx, "u1")
		gt.NoError(t, err).Required()
		gt.Value(t, user.Email).Equal("alice@example.com")
		gt.Value(t, user.DisplayName).Equal("Alice")

		chat, err := repo.Chat().Get(ctx, config.DefaultGeneralChatID)
		gt.NoError(t, err).Required()
		gt.Value(t, chat.Type).Equal(model.ChatTypeGroup)
		gt.Value(t, chat.Name).Equal(config.DefaultGeneralChatName)
		gt.Bool(t, chat.HasParticipant("u1")).True()
	})

	t.Run("redelivery is idempotent", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		ctx := context.Background()

		ev := &model.UserCreatedEvent{UserID: "u1", Email: "alice@example.com"}
		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, ev)).Required()
		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, ev)).Required()

		chat, err := repo.Chat().Get(ctx, config.DefaultGeneralChatID)
		gt.NoError(t, err).Required()
		gt.Array(t, chat.Participants).Length(1)
	})

	t.Run("later users join the same chat", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)
		ctx := context.Background()

		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, &model.UserCreatedEvent{UserID: "u1"})).Required()
		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, &model.UserCreatedEvent{UserID: "u2"})).Required()

		chat, err := repo.Chat().Get(ctx, config.DefaultGeneralChatID)
		gt.NoError(t, err).Required()
		gt.Array(t, chat.Participants).Length(2)
		gt.Bool(t, chat.HasParticipant("u1")).True()
		gt.Bool(t, chat.HasParticipant("u2")).True()
	})

	t.Run("custom general chat from config", func(t *testing.T) {
		repo := memory.New()
		cfg := config.Default()
		cfg.GeneralChatID = "lobby"
		cfg.GeneralChatName = "Lobby"
		uc := usecase.New(repo, usecase.WithConfig(cfg))
		ctx := context.Background()

		gt.NoError(t, uc.Provision.HandleUserCreated(ctx, &model.UserCreatedEvent{UserID: "u1"})).Required()

		chat, err := repo.Chat().Get(ctx, "lobby")
		gt.NoError(t, err).Required()
		gt.Value(t, chat.Name).Equal("Lobby")
		gt.Bool(t, chat.HasParticipant("u1")).True()
	})

	t.Run("missing user ID fails", func(t *testing.T) {
		repo := memory.New()
		uc := usecase.New(repo)

		err := uc.Provision.HandleUserCreated(context.Background(), &model.UserCreatedEvent{})
		gt.Value(t, err).NotNil()
	})
}
