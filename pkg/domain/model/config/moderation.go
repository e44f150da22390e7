package config

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/chatwarden/pkg/domain/types"
)

// Default limits, matching the pipeline contract: a 12-message
// transcript window and a 50-entry consolidation window.
const (
	DefaultTranscriptLimit    = 12
	DefaultConsolidationLimit = 50

	DefaultGeneralChatID   = "general"
	DefaultGeneralChatName = "General"
)

// Moderation is the deployment-level policy configuration of the
// moderation pipeline. It is loaded once at cold start; there is no
// runtime reconfiguration.
type Moderation struct {
	// GeneralChatID/Name identify the default shared chat that new
	// users are joined to during provisioning.
	GeneralChatID   types.ChatID `toml:"general_chat_id"`
	GeneralChatName string       `toml:"general_chat_name"`

	// TranscriptLimit bounds the message window sent as model context.
	TranscriptLimit int `toml:"transcript_limit"`

	// ConsolidationLimit bounds the memory window read per consolidation.
	ConsolidationLimit int `toml:"consolidation_limit"`

	// MemoryScope selects per-chat or per-user memory ownership.
	MemoryScope types.MemoryScope `toml:"memory_scope"`

	// AssistantName, when set, enables the respondToChat tool and is the
	// display name replies are attributed to.
	AssistantName string `toml:"assistant_name"`

	// Rules are extra policy rules appended to the system prompt.
	Rules []string `toml:"rules"`
}

// Default returns a Moderation config with all defaults applied.
func Default() *Moderation {
	return &Moderation{
		GeneralChatID:      DefaultGeneralChatID,
		GeneralChatName:    DefaultGeneralChatName,
		TranscriptLimit:    DefaultTranscriptLimit,
		ConsolidationLimit: DefaultConsolidationLimit,
		MemoryScope:        types.MemoryScopeChat,
	}
}

// Normalize fills zero-valued fields with defaults.
func (c *Moderation) Normalize() {
	if c.GeneralChatID == "" {
		c.GeneralChatID = DefaultGeneralChatID
	}
	if c.GeneralChatName == "" {
		c.GeneralChatName = DefaultGeneralChatName
	}
	if c.TranscriptLimit <= 0 {
		c.TranscriptLimit = DefaultTranscriptLimit
	}
	if c.ConsolidationLimit <= 0 {
		c.ConsolidationLimit = DefaultConsolidationLimit
	}
	c.MemoryScope = c.MemoryScope.Normalize()
}

// Validate checks if the Moderation config is valid
func (c *Moderation) Validate() error {
	if err := c.GeneralChatID.Validate(); err != nil {
		return goerr.Wrap(err, "invalid general chat ID")
	}
	if !c.MemoryScope.IsValid() {
		return goerr.New("invalid memory scope", goerr.V("scope", c.MemoryScope))
	}
	if c.TranscriptLimit <= 0 {
		return goerr.New("transcript limit must be positive", goerr.V("limit", c.TranscriptLimit))
	}
	if c.ConsolidationLimit <= 0 {
		return goerr.New("consolidation limit must be positive", goerr.V("limit", c.ConsolidationLimit))
	}
	return nil
}

// RespondEnabled reports whether the respondToChat tool is offered.
func (c *Moderation) RespondEnabled() bool {
	return c.AssistantName != ""
}
