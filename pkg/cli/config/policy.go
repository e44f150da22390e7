package config

import (
	"context"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
	"github.com/secmon-lab/chatwarden/pkg/utils/safe"
	"github.com/urfave/cli/v3"
)

// Policy holds CLI flags for the moderation policy. A TOML file carries
// the full policy; individual flags override its fields so common
// deployments need no file at all.
type Policy struct {
	filePath      string
	memoryScope   string
	assistantName string
	generalChatID string
}

// NewPolicy returns a Policy bound to a TOML file path. Flag parsing
// normally fills the struct; this is for direct construction.
func NewPolicy(filePath string) *Policy {
	return &Policy{filePath: filePath}
}

// Flags returns CLI flags for policy configuration
func (p *Policy) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "policy-file",
			Usage:       "Path to moderation policy TOML file",
			Sources:     cli.EnvVars("CHATWARDEN_POLICY_FILE"),
			Destination: &p.filePath,
		},
		&cli.StringFlag{
			Name:        "memory-scope",
			Usage:       "Memory ownership scope (chat or user)",
			Sources:     cli.EnvVars("CHATWARDEN_MEMORY_SCOPE"),
			Destination: &p.memoryScope,
		},
		&cli.StringFlag{
			Name:        "assistant-name",
			Usage:       "Assistant display name (enables chat replies when set)",
			Sources:     cli.EnvVars("CHATWARDEN_ASSISTANT_NAME"),
			Destination: &p.assistantName,
		},
		&cli.StringFlag{
			Name:        "general-chat-id",
			Usage:       "Chat ID of the shared chat new users join",
			Sources:     cli.EnvVars("CHATWARDEN_GENERAL_CHAT_ID"),
			Destination: &p.generalChatID,
		},
	}
}

// Configure loads the moderation policy: file first when given, then
// flag overrides, then defaults for anything still unset.
func (p *Policy) Configure() (*config.Moderation, error) {
	cfg := config.Default()

	if p.filePath != "" {
		f, err := os.Open(p.filePath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open policy file", goerr.V("path", p.filePath))
		}
		defer safe.Close(context.Background(), f)

		if err := toml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, goerr.Wrap(err, "failed to parse policy file", goerr.V("path", p.filePath))
		}
	}

	if p.memoryScope != "" {
		scope, err := types.ParseMemoryScope(p.memoryScope)
		if err != nil {
			return nil, err
		}
		cfg.MemoryScope = scope
	}
	if p.assistantName != "" {
		cfg.AssistantName = p.assistantName
	}
	if p.generalChatID != "" {
		cfg.GeneralChatID = types.ChatID(p.generalChatID)
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid moderation policy")
	}

	return cfg, nil
}

// LogValue returns log attributes for the policy configuration
func (p Policy) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("file", p.filePath),
		slog.String("memory_scope", p.memoryScope),
		slog.String("assistant_name", p.assistantName),
		slog.String("general_chat_id", p.generalChatID),
	)
}
