package twilio

import (
	"fmt"

	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// ProviderService wraps the Twilio REST API for number administration.
// It reconfigures which webhook URL a provider number delivers inbound
// call events to.
type ProviderService struct {
	client     *twilio.RestClient
	enabled    bool
	accountSID string
}

// NewProviderService creates a new provider service.
// If accountSID or authToken is empty, the service will be disabled.
func NewProviderService(accountSID, authToken string) *ProviderService {
	if accountSID == "" || authToken == "" {
		logger.Base().Warn("Twilio credentials not provided, provider administration disabled")
		return &ProviderService{enabled: false}
	}

	return &ProviderService{
		client:     twilio.NewRestClientWithParams(twilio.ClientParams{Username: accountSID, Password: authToken}),
		enabled:    true,
		accountSID: accountSID,
	}
}

// IsEnabled returns whether the service is enabled
func (s *ProviderService) IsEnabled() bool {
	return s.enabled
}

// ConfigureVoiceWebhook points the provider number identified by phoneSID
// at the given inbound-call webhook URL. statusURL is optional; when set,
// call lifecycle status callbacks are delivered there as well.
func (s *ProviderService) ConfigureVoiceWebhook(phoneSID, voiceURL, statusURL string) error {
	if !s.enabled {
		return fmt.Errorf("twilio provider service is disabled")
	}

	params := &api.UpdateIncomingPhoneNumberParams{}
	params.SetVoiceUrl(voiceURL)
	params.SetVoiceMethod("POST")
	if statusURL != "" {
		params.SetStatusCallback(statusURL)
		params.SetStatusCallbackMethod("POST")
	}

	number, err := s.client.Api.UpdateIncomingPhoneNumber(phoneSID, params)
	if err != nil {
		logger.Base().Error("failed to update provider number webhook",
			zap.String("phone_sid", phoneSID),
			zap.Error(err))
		return fmt.Errorf("update provider number %s: %w", phoneSID, err)
	}

	updated := ""
	if number.PhoneNumber != nil {
		updated = *number.PhoneNumber
	}
	logger.Base().Info("provider number webhook updated",
		zap.String("phone_sid", phoneSID),
		zap.String("number", updated),
		zap.String("voice_url", voiceURL))

	return nil
}
