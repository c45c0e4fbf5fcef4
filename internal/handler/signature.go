package handler

import (
	"net/http"
	"strings"

	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	twclient "github.com/twilio/twilio-go/client"
	"go.uber.org/zap"
)

// SignatureMiddleware validates the provider's X-Twilio-Signature header
// against the shared auth token before any handler (and therefore any
// database access) runs. Unsigned or tampered deliveries get 403.
//
// publicBaseURL must be the externally visible base URL: the provider
// signs over the URL it delivered to, not whatever host header reaches
// this process behind a load balancer.
//
// An empty authToken disables validation (local development only).
func SignatureMiddleware(authToken, publicBaseURL string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authToken == "" {
				logger.Base().Warn("webhook signature validation disabled (no auth token configured)")
				next.ServeHTTP(w, r)
				return
			}

			if err := r.ParseForm(); err != nil {
				http.Error(w, "bad form", http.StatusBadRequest)
				return
			}

			params := make(map[string]string, len(r.PostForm))
			for key, values := range r.PostForm {
				if len(values) > 0 {
					params[key] = values[0]
				}
			}

			url := strings.TrimRight(publicBaseURL, "/") + r.URL.RequestURI()
			validator := twclient.NewRequestValidator(authToken)
			if !validator.Validate(url, params, r.Header.Get("X-Twilio-Signature")) {
				logger.Base().Warn("webhook signature validation failed",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr))
				http.Error(w, "invalid signature", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
