package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/secmon-lab/chatwarden/pkg/cli/config"
	httpctrl "github.com/secmon-lab/chatwarden/pkg/controller/http"
	"github.com/secmon-lab/chatwarden/pkg/usecase"
	"github.com/secmon-lab/chatwarden/pkg/utils/errutil"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var policyCfg config.Policy
	var repoCfg config.Repository
	var openaiCfg config.OpenAI
	var sentryCfg config.Sentry

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("CHATWARDEN_ADDR"),
			Destination: &addr,
		},
	}

	// Add shared config flags
	flags = append(flags, policyCfg.Flags()...)
	flags = append(flags, repoCfg.Flags()...)
	flags = append(flags, openaiCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server for trigger deliveries",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			policy, err := policyCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to load moderation policy")
			}

			sentryClose, err := sentryCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure error tracking")
			}
			defer sentryClose()

			repo, err := repoCfg.Configure(ctx)
			if err != nil {
				return goerr.Wrap(err, "failed to initialize repository")
			}
			defer func() {
				if err := repo.Close(); err != nil {
					_ = errutil.Handle(ctx, err, "failed to close repository")
				}
			}()

			ucOpts := []usecase.Option{
				usecase.WithConfig(policy),
			}

			llmClient, err := openaiCfg.Configure()
			if err != nil {
				return goerr.Wrap(err, "failed to configure completion client")
			}
			if llmClient != nil {
				ucOpts = append(ucOpts, usecase.WithLLM(llmClient))
				logging.Default().Info("Completion client enabled", "openai", openaiCfg)
			} else {
				logging.Default().Warn("OpenAI API key not configured, messages will be marked clean without evaluation")
			}

			uc := usecase.New(repo, ucOpts...)

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "policy", policyCfg)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
