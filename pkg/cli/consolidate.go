package cli

import (
	"context"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/chatwarden/pkg/cli/config"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/usecase"
	"github.com/secmon-lab/chatwarden/pkg/utils/errutil"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// cmdConsolidate runs one consolidation pass for a single chat. Useful
// for backfilling group memory after policy changes without waiting for
// the next memory write.
func cmdConsolidate() *cli.Command {
	var chatID string
	var policyCfg config.Policy
	var repoCfg config.Repository
	var openaiCfg config.OpenAI

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "chat-id",
			Usage:       "Chat ID to consolidate",
			Required:    true,
			Sources:     cli.EnvVars("CHATWARDEN_CHAT_ID"),
			Destination: &chatID,
		},
	}

	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, openaiCfg.Flags()...)

	return &cli.Command{
		Name:  "consolidate",
		Usage: "Rebuild the group memory summary of one chat",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load moderation policy")
			}

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					_ = errutil.Handle(ctx, err, "failed to close repository")
				}
			}()

			llmClient, err := openaiCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure completion client")
			}
			if llmClient == nil {
				return goerr.New("OpenAI API key is required for consolidation")
			}

			uc := usecase.New(repo,
				usecase.WithConfig(policy),
				usecase.WithLLM(llmClient),
			)

			id := types.ChatID(chatID)
			if err := id.Validate(); err != nil {
				return goerr.Wrap(err, "invalid chat ID")
			}

			if err := uc.Consolidate.Consolidate(ctx, id); err != nil {
				return goerr.Wrap(err, "consolidation failed", goerr.V("chat_id", chatID))
			}

			logging.Default().Info("Consolidation completed", "chat_id", chatID)
			return nil
		},
	}
}
