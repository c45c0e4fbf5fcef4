package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/CallPilotAI/callpilot-voice-service/internal/config"
	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	twiliopkg "github.com/CallPilotAI/callpilot-voice-service/pkg/twilio"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// PhoneNumberHandler handles HTTP requests for phone number administration
type PhoneNumberHandler struct {
	cfg         *config.VoiceGatewayConfig
	numberRepo  repository.PhoneNumberRepository
	providerSvc *twiliopkg.ProviderService
}

// NewPhoneNumberHandler creates a new phone number handler
func NewPhoneNumberHandler(cfg *config.VoiceGatewayConfig, numberRepo repository.PhoneNumberRepository, providerSvc *twiliopkg.ProviderService) *PhoneNumberHandler {
	return &PhoneNumberHandler{
		cfg:         cfg,
		numberRepo:  numberRepo,
		providerSvc: providerSvc,
	}
}

// RegisterNumber registers a provider number and assigns it to a tenant
func (h *PhoneNumberHandler) RegisterNumber(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterPhoneNumberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Number == "" || req.TenantID == "" {
		http.Error(w, "number and tenant_id are required", http.StatusBadRequest)
		return
	}

	number, err := h.numberRepo.Register(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(number)
}

// GetNumber retrieves a phone number record
func (h *PhoneNumberHandler) GetNumber(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	number := vars["number"]

	record, err := h.numberRepo.GetByNumber(r.Context(), number)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Phone number not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// DeactivateNumber marks a phone number inactive
func (h *PhoneNumberHandler) DeactivateNumber(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	number := vars["number"]

	if err := h.numberRepo.Deactivate(r.Context(), number); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Phone number not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// configureWebhookRequest is the body for ConfigureNumberWebhook. With no
// voice_url the gateway points the number at its own webhook endpoint.
type configureWebhookRequest struct {
	VoiceURL string `json:"voice_url,omitempty"`
}

// ConfigureNumberWebhook updates the provider-side webhook configuration
// of a number so its inbound calls are delivered to this gateway.
func (h *PhoneNumberHandler) ConfigureNumberWebhook(w http.ResponseWriter, r *http.Request) {
	if h.providerSvc == nil || !h.providerSvc.IsEnabled() {
		http.Error(w, "provider administration is not configured", http.StatusServiceUnavailable)
		return
	}

	vars := mux.Vars(r)
	phoneSID := vars["sid"]

	var req configureWebhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	base := strings.TrimRight(h.cfg.PublicBaseURL, "/")
	voiceURL := req.VoiceURL
	if voiceURL == "" {
		voiceURL = base + "/webhook/voice"
	}
	statusURL := base + "/webhook/status"

	if err := h.providerSvc.ConfigureVoiceWebhook(phoneSID, voiceURL, statusURL); err != nil {
		logger.Base().Error("provider webhook reconfiguration failed",
			zap.String("phone_sid", phoneSID),
			zap.Error(err))
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"phone_sid":  phoneSID,
		"voice_url":  voiceURL,
		"status_url": statusURL,
	})
}

// SetupPhoneNumberRoutes sets up all phone number routes
func (h *PhoneNumberHandler) SetupPhoneNumberRoutes(router *mux.Router) {
	router.HandleFunc("/numbers", h.RegisterNumber).Methods("POST")
	router.HandleFunc("/numbers/{number}", h.GetNumber).Methods("GET")
	router.HandleFunc("/numbers/{number}", h.DeactivateNumber).Methods("DELETE")
	router.HandleFunc("/numbers/{sid}/webhook", h.ConfigureNumberWebhook).Methods("POST")

	logger.Base().Info("phone number routes registered")
}
