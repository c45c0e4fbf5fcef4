package config

import "time"

// VoiceGatewayConfig holds the voice gateway configuration. It is
// populated from the environment in cmd/server.
type VoiceGatewayConfig struct {
	Port string

	// PublicBaseURL is the externally visible base URL of this gateway,
	// e.g. "https://gateway.example.com". The provider signs webhook
	// deliveries over the full public URL, so signature validation needs
	// it even behind a load balancer.
	PublicBaseURL string

	// Twilio configuration
	TwilioAccountSID string
	TwilioAuthToken  string

	// SecretKey signs the admin API keys (JWT). Empty disables the check
	// for local development.
	SecretKey string

	// Global call configuration defaults applied by the resolver when a
	// tenant leaves a field unset.
	DefaultGreeting string
	DefaultVoiceID  string
	DefaultLanguage string

	// Redis configuration for the resolved-config cache. The gateway runs
	// without redis if the connection fails.
	RedisHost      string
	RedisPort      string
	RedisPassword  string
	RedisDB        int
	ConfigCacheTTL time.Duration

	EnableCORS bool
}
