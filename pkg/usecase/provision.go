package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
)

// ProvisionUseCase handles account-creation deliveries: it mirrors the
// identity-provider profile into a user document and joins the new user
// to the default shared chat. Every write is an upsert or set-union, so
// redelivery is harmless.
type ProvisionUseCase struct {
	repo interfaces.Repository
	cfg  *config.Moderation
}

// NewProvisionUseCase creates a new ProvisionUseCase
func NewProvisionUseCase(repo interfaces.Repository, cfg *config.Moderation) *ProvisionUseCase {
	return &ProvisionUseCase{
		repo: repo,
		cfg:  cfg,
	}
}

// HandleUserCreated processes one account-creation event.
func (uc *ProvisionUseCase) HandleUserCreated(ctx context.Context, ev *model.UserCreatedEvent) error {
	if err := ev.Validate(); err != nil {
		return goerr.Wrap(err, "invalid user created event")
	}

	user := &model.User{
		ID:          ev.UserID,
		Email:       ev.Email,
		DisplayName: ev.DisplayName,
		PhotoURL:    ev.PhotoURL,
	}
	if err := uc.repo.User().Upsert(ctx, user); err != nil {
		return goerr.Wrap(err, "failed to upsert user profile", goerr.V("userID", ev.UserID))
	}

	general := &model.Chat{
		ID:   uc.cfg.GeneralChatID,
		Type: model.ChatTypeGroup,
		Name: uc.cfg.GeneralChatName,
	}
	if err := uc.repo.Chat().Upsert(ctx, general); err != nil {
		return goerr.Wrap(err, "failed to upsert general chat", goerr.V("chatID", general.ID))
	}

	if err := uc.repo.Chat().AddParticipant(ctx, general.ID, ev.UserID); err != nil {
		return goerr.Wrap(err, "failed to join general chat",
			goerr.V("chatID", general.ID),
			goerr.V("userID", ev.UserID),
		)
	}

	logging.From(ctx).Info("provisioned user",
		"userID", ev.UserID,
		"generalChatID", general.ID,
	)
	return nil
}
