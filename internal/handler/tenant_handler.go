package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/internal/services/callconfig"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	"github.com/gorilla/mux"
)

// TenantHandler handles HTTP requests for tenant administration
type TenantHandler struct {
	tenantRepo    repository.TenantRepository
	configService *callconfig.Service
}

// NewTenantHandler creates a new tenant handler
func NewTenantHandler(tenantRepo repository.TenantRepository, configService *callconfig.Service) *TenantHandler {
	return &TenantHandler{
		tenantRepo:    tenantRepo,
		configService: configService,
	}
}

// CreateTenant creates a new tenant
func (h *TenantHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CompanyName == "" {
		http.Error(w, "company_name is required", http.StatusBadRequest)
		return
	}

	tenant, err := h.tenantRepo.Create(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tenant)
}

// GetTenant retrieves a tenant by ID
func (h *TenantHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	tenant, err := h.tenantRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// GetTenants lists all tenants
func (h *TenantHandler) GetTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.tenantRepo.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenants)
}

// UpdateTenant updates tenant metadata
func (h *TenantHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var req domain.UpdateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tenant, err := h.tenantRepo.Update(r.Context(), id, &req)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tenant)
}

// DeleteTenant removes a tenant and releases its numbers
func (h *TenantHandler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	if err := h.tenantRepo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.configService.InvalidateTenant(r.Context(), id)
	w.WriteHeader(http.StatusNoContent)
}

// GetCallConfig retrieves the stored (unresolved) call configuration
func (h *TenantHandler) GetCallConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	cfg, err := h.tenantRepo.GetCallConfig(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(cfg)
}

// MergeCallConfig shallow-merges a partial call configuration into the
// stored document. Unset fields keep their stored values; this endpoint
// never replaces the whole document.
func (h *TenantHandler) MergeCallConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var partial domain.CallConfig
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	// An explicitly empty required field would survive the merge and make
	// the config unresolvable; reject it before touching storage.
	if (partial.VoiceID != nil && *partial.VoiceID == "") ||
		(partial.Language != nil && *partial.Language == "") {
		http.Error(w, domain.ErrInvalidConfig.Error(), http.StatusUnprocessableEntity)
		return
	}

	merged, err := h.tenantRepo.MergeCallConfig(r.Context(), id, partial)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.configService.InvalidateTenant(r.Context(), id)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(merged)
}

// GetResolvedCallConfig returns the effective configuration the webhook
// handler would use for this tenant, defaults applied.
func (h *TenantHandler) GetResolvedCallConfig(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	eff, err := h.configService.ResolveForTenant(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrTenantNotFound) {
			http.Error(w, "Tenant not found", http.StatusNotFound)
			return
		}
		if errors.Is(err, domain.ErrInvalidConfig) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(eff)
}

// SetupTenantRoutes sets up all tenant-related routes
func (h *TenantHandler) SetupTenantRoutes(router *mux.Router) {
	router.HandleFunc("/tenants", h.CreateTenant).Methods("POST")
	router.HandleFunc("/tenants", h.GetTenants).Methods("GET")
	router.HandleFunc("/tenants/{id}", h.GetTenant).Methods("GET")
	router.HandleFunc("/tenants/{id}", h.UpdateTenant).Methods("PUT")
	router.HandleFunc("/tenants/{id}", h.DeleteTenant).Methods("DELETE")

	router.HandleFunc("/tenants/{id}/call-config", h.GetCallConfig).Methods("GET")
	router.HandleFunc("/tenants/{id}/call-config", h.MergeCallConfig).Methods("PATCH")
	router.HandleFunc("/tenants/{id}/call-config/resolved", h.GetResolvedCallConfig).Methods("GET")

	logger.Base().Info("tenant routes registered")
}
