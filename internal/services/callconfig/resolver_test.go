package callconfig

import (
	"testing"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

var testDefaults = Defaults{
	Greeting: "Hello, thank you for calling.",
	VoiceID:  "alice",
	Language: "en-US",
}

func TestResolve_EmptyConfigGetsDefaults(t *testing.T) {
	eff, err := testDefaults.Resolve(domain.CallConfig{})
	require.NoError(t, err)

	assert.Equal(t, EffectiveConfig{
		Greeting: "Hello, thank you for calling.",
		VoiceID:  "alice",
		Language: "en-US",
		Enabled:  true,
	}, eff)
}

func TestResolve_TenantFieldsWinOverDefaults(t *testing.T) {
	eff, err := testDefaults.Resolve(domain.CallConfig{
		Greeting: strPtr("Hola"),
		Language: strPtr("es-MX"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Hola", eff.Greeting)
	assert.Equal(t, "es-MX", eff.Language)
	assert.Equal(t, "alice", eff.VoiceID)
	assert.True(t, eff.Enabled)
}

func TestResolve_ExplicitDisableSurvives(t *testing.T) {
	eff, err := testDefaults.Resolve(domain.CallConfig{Enabled: boolPtr(false)})
	require.NoError(t, err)
	assert.False(t, eff.Enabled)
}

func TestResolve_IsDeterministic(t *testing.T) {
	cfg := domain.CallConfig{
		Greeting:     strPtr("Hola"),
		Instructions: strPtr("Say something"),
	}

	first, err := testDefaults.Resolve(cfg)
	require.NoError(t, err)
	second, err := testDefaults.Resolve(cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestResolve_MissingRequiredFieldFails(t *testing.T) {
	noVoiceDefaults := Defaults{Greeting: "Hi", Language: "en-US"}

	_, err := noVoiceDefaults.Resolve(domain.CallConfig{})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)

	// An explicitly empty tenant value is just as unresolvable.
	_, err = testDefaults.Resolve(domain.CallConfig{Language: strPtr("")})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
}
