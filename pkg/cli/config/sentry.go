package config

import (
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Sentry holds CLI flags for error tracking configuration
type Sentry struct {
	dsn string
	env string
}

// Flags returns CLI flags for Sentry configuration
func (s *Sentry) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "sentry-dsn",
			Usage:       "Sentry DSN for error tracking (leave empty to disable)",
			Sources:     cli.EnvVars("CHATWARDEN_SENTRY_DSN"),
			Destination: &s.dsn,
		},
		&cli.StringFlag{
			Name:        "sentry-env",
			Usage:       "Sentry environment name",
			Sources:     cli.EnvVars("CHATWARDEN_SENTRY_ENV"),
			Destination: &s.env,
		},
	}
}

// Configure initializes the Sentry SDK when a DSN is set. The returned
// closer flushes buffered events before shutdown.
func (s *Sentry) Configure() (func(), error) {
	if s.dsn == "" {
		logging.Default().Info("Sentry is disabled")
		return func() {}, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         s.dsn,
		Environment: s.env,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to initialize sentry")
	}

	logging.Default().Info("Sentry is enabled", "env", s.env)
	return func() {
		sentry.Flush(2 * time.Second)
	}, nil
}

// LogValue returns log attributes for the Sentry configuration. The DSN
// itself is never logged.
func (s Sentry) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("dsn_set", s.dsn != ""),
		slog.String("env", s.env),
	)
}
