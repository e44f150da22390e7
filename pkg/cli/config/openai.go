package config

import (
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/service/llm"
	"github.com/urfave/cli/v3"
)

// OpenAI holds CLI flags for the chat-completion client
type OpenAI struct {
	apiKey  string
	model   string
	baseURL string
}

// Flags returns CLI flags for OpenAI configuration
func (o *OpenAI) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &o.apiKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "Chat completion model",
			Value:       llm.DefaultModel,
			Sources:     cli.EnvVars("CHATWARDEN_OPENAI_MODEL"),
			Destination: &o.model,
		},
		&cli.StringFlag{
			Name:        "openai-base-url",
			Usage:       "Override the completion API base URL (for proxies and tests)",
			Sources:     cli.EnvVars("CHATWARDEN_OPENAI_BASE_URL"),
			Destination: &o.baseURL,
		},
	}
}

// Configure creates a chat-completion client from the configured flags.
// Returns nil when no API key is set: the pipeline then runs in its
// degraded no-model mode instead of failing at startup.
func (o *OpenAI) Configure() (*llm.Client, error) {
	if o.apiKey == "" {
		return nil, nil
	}

	client, err := llm.New(o.apiKey, o.baseURL, llm.WithModel(o.model))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create completion client")
	}

	return client, nil
}

// LogValue returns log attributes for the OpenAI configuration. The API
// key itself is never logged.
func (o OpenAI) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("api_key_set", o.apiKey != ""),
		slog.String("model", o.model),
		slog.String("base_url", o.baseURL),
	)
}
