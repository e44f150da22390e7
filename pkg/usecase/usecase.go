package usecase

import (
	"github.com/secmon-lab/chatwarden/pkg/domain/interfaces"
	"github.com/secmon-lab/chatwarden/pkg/domain/model/config"
)

// UseCases aggregates the trigger-facing use cases of the pipeline.
type UseCases struct {
	Moderation  *ModerationUseCase
	Consolidate *ConsolidateUseCase
	Provision   *ProvisionUseCase
}

type Option func(*options)

type options struct {
	llm interfaces.ChatCompletion
	cfg *config.Moderation
}

// WithLLM sets the chat-completion client. Without it the pipeline runs
// in the degraded no-model mode.
func WithLLM(client interfaces.ChatCompletion) Option {
	return func(o *options) {
		o.llm = client
	}
}

// WithConfig sets the moderation policy configuration.
func WithConfig(cfg *config.Moderation) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

// New builds the use cases. The consolidator is wired as the moderation
// stage's fact sink: a direct in-process call whose failure is logged at
// the moderation boundary and cannot roll back the already-written fact.
func New(repo interfaces.Repository, opts ...Option) *UseCases {
	o := &options{
		cfg: config.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.cfg.Normalize()

	consolidate := NewConsolidateUseCase(repo, o.llm, o.cfg.ConsolidationLimit)
	moderation := NewModerationUseCase(repo, o.llm, o.cfg, consolidate)
	provision := NewProvisionUseCase(repo, o.cfg)

	return &UseCases{
		Moderation:  moderation,
		Consolidate: consolidate,
		Provision:   provision,
	}
}
