package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	"github.com/gorilla/mux"
)

// CallLogHandler handles HTTP requests for call log inspection
type CallLogHandler struct {
	callLogRepo repository.CallLogRepository
}

// NewCallLogHandler creates a new call log handler
func NewCallLogHandler(callLogRepo repository.CallLogRepository) *CallLogHandler {
	return &CallLogHandler{callLogRepo: callLogRepo}
}

// ListCallLogs lists call logs, most recent first
func (h *CallLogHandler) ListCallLogs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	logs, err := h.callLogRepo.List(r.Context(), limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(logs)
}

// GetCallLog retrieves a call log by its provider call identifier
func (h *CallLogHandler) GetCallLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	callSid := vars["call_sid"]

	record, err := h.callLogRepo.GetByCallSid(r.Context(), callSid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if record == nil {
		http.Error(w, "Call log not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(record)
}

// SetupCallLogRoutes sets up all call log routes
func (h *CallLogHandler) SetupCallLogRoutes(router *mux.Router) {
	router.HandleFunc("/call-logs", h.ListCallLogs).Methods("GET")
	router.HandleFunc("/call-logs/{call_sid}", h.GetCallLog).Methods("GET")

	logger.Base().Info("call log routes registered")
}
