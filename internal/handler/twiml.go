package handler

import (
	"encoding/xml"
	"net/http"

	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	"go.uber.org/zap"
)

// TwiML voice-response document, the markup Twilio executes against the
// live call. Twilio expects Content-Type: text/xml.
type VoiceResponse struct {
	XMLName xml.Name    `xml:"Response"`
	Say     []Say       `xml:"Say,omitempty"`
	Gather  *Gather     `xml:"Gather,omitempty"`
	Hangup  *HangupVerb `xml:"Hangup,omitempty"`
	Reject  *RejectVerb `xml:"Reject,omitempty"`
}

// Say speaks text to the caller with an optional voice and language.
type Say struct {
	Voice    string `xml:"voice,attr,omitempty"`
	Language string `xml:"language,attr,omitempty"`
	Text     string `xml:",chardata"`
}

// Gather collects caller input. With no action attribute the provider
// re-requests the current webhook URL when input completes.
type Gather struct {
	Input  string `xml:"input,attr,omitempty"`
	Method string `xml:"method,attr,omitempty"`
	Say    *Say   `xml:"Say,omitempty"`
}

// HangupVerb ends the call.
type HangupVerb struct{}

// RejectVerb declines the call without answering.
type RejectVerb struct {
	Reason string `xml:"reason,attr,omitempty"` // "rejected" or "busy"
}

// writeVoiceResponse serializes a TwiML document to the response writer.
func writeVoiceResponse(w http.ResponseWriter, statusCode int, resp VoiceResponse) {
	out, err := xml.MarshalIndent(resp, "", "  ")
	if err != nil {
		logger.Base().Error("failed to marshal voice response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(statusCode)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}
