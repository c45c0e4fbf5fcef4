package callconfig

import (
	"fmt"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
)

// Defaults is the global default set applied when a tenant leaves a call
// configuration field unset. A tenant's explicit fields always win.
type Defaults struct {
	Greeting string
	VoiceID  string
	Language string
}

// EffectiveConfig is a fully populated call configuration. The resolver,
// not the caller, is responsible for filling every required field, so
// consumers never have to re-check for missing values.
type EffectiveConfig struct {
	Greeting     string `json:"greeting"`
	VoiceID      string `json:"voice_id"`
	Language     string `json:"language"`
	Enabled      bool   `json:"enabled"`
	Instructions string `json:"instructions,omitempty"`
}

// Resolve produces the effective configuration for a stored document.
// Resolution is deterministic: the same stored config and defaults always
// yield the same output. Returns ErrInvalidConfig when a required field
// is still empty after defaulting.
func (d Defaults) Resolve(cfg domain.CallConfig) (EffectiveConfig, error) {
	eff := EffectiveConfig{
		Greeting: d.Greeting,
		VoiceID:  d.VoiceID,
		Language: d.Language,
		Enabled:  true,
	}

	if cfg.Greeting != nil {
		eff.Greeting = *cfg.Greeting
	}
	if cfg.VoiceID != nil {
		eff.VoiceID = *cfg.VoiceID
	}
	if cfg.Language != nil {
		eff.Language = *cfg.Language
	}
	if cfg.Enabled != nil {
		eff.Enabled = *cfg.Enabled
	}
	if cfg.Instructions != nil {
		eff.Instructions = *cfg.Instructions
	}

	if eff.VoiceID == "" {
		return EffectiveConfig{}, fmt.Errorf("voice id empty after defaulting: %w", domain.ErrInvalidConfig)
	}
	if eff.Language == "" {
		return EffectiveConfig{}, fmt.Errorf("language empty after defaulting: %w", domain.ErrInvalidConfig)
	}

	return eff, nil
}
