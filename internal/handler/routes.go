package handler

import (
	"encoding/json"
	"net/http"

	"github.com/CallPilotAI/callpilot-voice-service/internal/config"
	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/internal/services/callconfig"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	redispkg "github.com/CallPilotAI/callpilot-voice-service/pkg/redis"
	twiliopkg "github.com/CallPilotAI/callpilot-voice-service/pkg/twilio"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandlerManager manages all handlers and their initialization
type HandlerManager struct {
	config        *config.VoiceGatewayConfig
	repoManager   repository.RepositoryManager
	configService *callconfig.Service
	providerSvc   *twiliopkg.ProviderService
}

// NewHandlerManager creates and initializes all services and handlers
func NewHandlerManager(cfg *config.VoiceGatewayConfig) (*HandlerManager, error) {
	// Initialize database connection
	repoManager, err := repository.NewRepositoryManager()
	if err != nil {
		logger.Base().Error("failed to connect to database", zap.Error(err))
		return nil, err
	}

	// Initialize Redis for the resolved-config cache. The gateway keeps
	// working without it; every resolution then hits the database.
	var redisSvc *redispkg.RedisService
	redisSvc, err = redispkg.NewRedisService(&redispkg.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Base().Warn("failed to initialize redis, running without config cache", zap.Error(err))
		redisSvc = nil
	}

	defaults := callconfig.Defaults{
		Greeting: cfg.DefaultGreeting,
		VoiceID:  cfg.DefaultVoiceID,
		Language: cfg.DefaultLanguage,
	}
	configService := callconfig.NewService(defaults, repoManager.Tenant(), repoManager.PhoneNumber(), redisSvc, cfg.ConfigCacheTTL)

	providerSvc := twiliopkg.NewProviderService(cfg.TwilioAccountSID, cfg.TwilioAuthToken)

	return &HandlerManager{
		config:        cfg,
		repoManager:   repoManager,
		configService: configService,
		providerSvc:   providerSvc,
	}, nil
}

// SetupAllRoutes sets up all routes with middleware
func (hm *HandlerManager) SetupAllRoutes(router *mux.Router) {
	if hm.config.EnableCORS {
		router.Use(CORSMiddleware)
	}
	router.Use(GlobalLoggingMiddleware)

	hm.SetupWebhookRoutes(router)
	hm.SetupAPIRoutes(router)

	router.HandleFunc("/healthz", hm.handleHealthz).Methods("GET")

	logger.Base().Info("all application routes registered")
}

// SetupWebhookRoutes sets up the provider webhook routes
func (hm *HandlerManager) SetupWebhookRoutes(router *mux.Router) {
	webhookHandler := NewVoiceWebhookHandler(hm.config, hm.configService, hm.repoManager.CallLog())
	webhookHandler.SetupWebhookRoutes(router)
}

// SetupAPIRoutes sets up the admin API routes and middleware
func (hm *HandlerManager) SetupAPIRoutes(router *mux.Router) {
	apiRouter := router.PathPrefix("/api").Subrouter()

	apiRouter.Use(LoggingMiddleware)
	apiRouter.Use(ValidationMiddleware)
	apiRouter.Use(APIKeyMiddleware(hm.config.SecretKey))

	tenantHandler := NewTenantHandler(hm.repoManager.Tenant(), hm.configService)
	tenantHandler.SetupTenantRoutes(apiRouter)

	phoneNumberHandler := NewPhoneNumberHandler(hm.config, hm.repoManager.PhoneNumber(), hm.providerSvc)
	phoneNumberHandler.SetupPhoneNumberRoutes(apiRouter)

	callLogHandler := NewCallLogHandler(hm.repoManager.CallLog())
	callLogHandler.SetupCallLogRoutes(apiRouter)

	// CORS preflight for all API routes
	router.PathPrefix("/api/").HandlerFunc(handleCORS).Methods("OPTIONS")

	logger.Base().Info("admin api routes registered")
}

// handleHealthz reports database reachability
func (hm *HandlerManager) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := hm.repoManager.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "degraded", "error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// GetRepoManager returns the repository manager
func (hm *HandlerManager) GetRepoManager() repository.RepositoryManager {
	return hm.repoManager
}

// handleCORS handles CORS preflight requests for API routes
func handleCORS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
	w.WriteHeader(http.StatusOK)
}
