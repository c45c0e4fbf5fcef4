package handler

import (
	"errors"
	"net/http"

	"github.com/CallPilotAI/callpilot-voice-service/internal/config"
	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/internal/services/callconfig"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// fallbackGreeting is spoken when the resolver cannot produce a valid
// configuration. A broken config must never leave the caller in silence.
const fallbackGreeting = "Hello. Thank you for calling."

// closureMessage is spoken when a tenant has call handling disabled.
const closureMessage = "We are sorry, this number is currently unavailable. Please try again later. Goodbye."

// notInServiceMessage is the generic response for numbers no tenant owns.
// It must not reveal anything about internal state.
const notInServiceMessage = "This number is not in service."

// VoiceWebhookHandler handles the provider's inbound call webhooks
type VoiceWebhookHandler struct {
	cfg           *config.VoiceGatewayConfig
	configService *callconfig.Service
	callLogs      repository.CallLogRepository
}

// NewVoiceWebhookHandler creates a new voice webhook handler
func NewVoiceWebhookHandler(cfg *config.VoiceGatewayConfig, configService *callconfig.Service, callLogs repository.CallLogRepository) *VoiceWebhookHandler {
	return &VoiceWebhookHandler{
		cfg:           cfg,
		configService: configService,
		callLogs:      callLogs,
	}
}

// SetupWebhookRoutes registers the webhook routes behind signature
// validation. Validation runs before any handler touches the database.
func (h *VoiceWebhookHandler) SetupWebhookRoutes(router *mux.Router) {
	webhookRouter := router.PathPrefix("/webhook").Subrouter()
	webhookRouter.Use(SignatureMiddleware(h.cfg.TwilioAuthToken, h.cfg.PublicBaseURL))
	webhookRouter.HandleFunc("/voice", h.HandleInboundCall).Methods("POST")
	webhookRouter.HandleFunc("/status", h.HandleStatusCallback).Methods("POST")

	logger.Base().Info("voice webhook routes registered")
}

// HandleInboundCall answers an inbound-call notification with a voice
// response document. Persistence problems degrade to a best-effort
// response instead of failing the call.
func (h *VoiceWebhookHandler) HandleInboundCall(w http.ResponseWriter, r *http.Request) {
	// The provider sends application/x-www-form-urlencoded.
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	callSid := r.FormValue("CallSid")
	from := r.FormValue("From")
	to := r.FormValue("To")
	callStatus := r.FormValue("CallStatus")
	direction := r.FormValue("Direction")

	if callSid == "" || to == "" {
		http.Error(w, "missing CallSid or To", http.StatusBadRequest)
		return
	}
	if callStatus == "" {
		callStatus = domain.CallStatusRinging
	}

	eff, tenantID, err := h.configService.EffectiveConfigForNumber(r.Context(), to)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTenantNotFound):
			// Unknown destination: generic response, no call log row.
			logger.Base().Info("inbound call for unknown destination",
				zap.String("call_sid", callSid),
				zap.String("to", to))
			writeVoiceResponse(w, http.StatusNotFound, VoiceResponse{
				Say:    []Say{{Text: notInServiceMessage}},
				Hangup: &HangupVerb{},
			})
			return
		case errors.Is(err, domain.ErrInvalidConfig):
			// Configuration bug: answer with the minimal greeting.
			logger.Base().Error("call config unresolvable, using fallback greeting",
				zap.String("call_sid", callSid),
				zap.String("tenant_id", tenantID),
				zap.Error(err))
			h.recordCallEvent(r, callSid, from, to, direction, callStatus)
			writeVoiceResponse(w, http.StatusOK, VoiceResponse{
				Say: []Say{{Text: fallbackGreeting}},
			})
			return
		default:
			// Storage unavailable: the caller still gets an answer.
			logger.Base().Error("tenant resolution failed, degrading to fallback greeting",
				zap.String("call_sid", callSid),
				zap.String("to", to),
				zap.Error(err))
			writeVoiceResponse(w, http.StatusOK, VoiceResponse{
				Say: []Say{{Text: fallbackGreeting}},
			})
			return
		}
	}

	h.recordCallEvent(r, callSid, from, to, direction, callStatus)

	if !eff.Enabled {
		writeVoiceResponse(w, http.StatusOK, VoiceResponse{
			Say:    []Say{{Voice: eff.VoiceID, Language: eff.Language, Text: closureMessage}},
			Hangup: &HangupVerb{},
		})
		return
	}

	resp := VoiceResponse{
		Say: []Say{{Voice: eff.VoiceID, Language: eff.Language, Text: eff.Greeting}},
	}
	if eff.Instructions != "" {
		resp.Gather = &Gather{
			Input:  "speech",
			Method: "POST",
			Say:    &Say{Voice: eff.VoiceID, Language: eff.Language, Text: eff.Instructions},
		}
	}

	writeVoiceResponse(w, http.StatusOK, resp)
}

// HandleStatusCallback records call lifecycle transitions
// (ringing, in-progress, completed, ...). Repeat deliveries for the same
// CallSid update the existing row.
func (h *VoiceWebhookHandler) HandleStatusCallback(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	callSid := r.FormValue("CallSid")
	status := r.FormValue("CallStatus")
	if callSid == "" || status == "" {
		http.Error(w, "missing CallSid or CallStatus", http.StatusBadRequest)
		return
	}

	h.recordCallEvent(r, callSid, r.FormValue("From"), r.FormValue("To"), r.FormValue("Direction"), status)
	w.WriteHeader(http.StatusNoContent)
}

// recordCallEvent upserts the call log. Logging failure is non-fatal to
// the caller experience.
func (h *VoiceWebhookHandler) recordCallEvent(r *http.Request, callSid, from, to, direction, status string) {
	if _, err := h.callLogs.Upsert(r.Context(), callSid, from, to, direction, status); err != nil {
		logger.Base().Warn("failed to record call event",
			zap.String("call_sid", callSid),
			zap.String("status", status),
			zap.Error(err))
	}
}
