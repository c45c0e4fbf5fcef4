package callconfig

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/CallPilotAI/callpilot-voice-service/internal/repository"
	"github.com/CallPilotAI/callpilot-voice-service/pkg/logger"
	redispkg "github.com/CallPilotAI/callpilot-voice-service/pkg/redis"
	"go.uber.org/zap"
)

const defaultCacheTTL = 30 * time.Second

// cachedEntry is the redis payload for a resolved destination number.
type cachedEntry struct {
	TenantID string          `json:"tenant_id"`
	Config   EffectiveConfig `json:"config"`
}

// Service resolves the effective call configuration for a destination
// number, caching results in redis keyed by number. The cache is optional:
// with a nil redis service every lookup goes to the database.
type Service struct {
	defaults Defaults
	tenants  repository.TenantRepository
	numbers  repository.PhoneNumberRepository
	cache    *redispkg.RedisService
	cacheTTL time.Duration
}

// NewService creates a call configuration service. cache may be nil.
func NewService(defaults Defaults, tenants repository.TenantRepository, numbers repository.PhoneNumberRepository, cache *redispkg.RedisService, cacheTTL time.Duration) *Service {
	if cacheTTL <= 0 {
		cacheTTL = defaultCacheTTL
	}
	return &Service{
		defaults: defaults,
		tenants:  tenants,
		numbers:  numbers,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Defaults returns the global default set used by this service.
func (s *Service) Defaults() Defaults {
	return s.defaults
}

// EffectiveConfigForNumber resolves the tenant owning the number and its
// effective call configuration. Returns the owning tenant ID alongside
// the config. Cache failures are logged and fall through to the database;
// tenant-not-found results are never cached.
func (s *Service) EffectiveConfigForNumber(ctx context.Context, number string) (EffectiveConfig, string, error) {
	if entry, ok := s.cacheGet(ctx, number); ok {
		return entry.Config, entry.TenantID, nil
	}

	tenant, err := s.tenants.GetByPhoneNumber(ctx, number)
	if err != nil {
		return EffectiveConfig{}, "", err
	}

	eff, err := s.defaults.Resolve(tenant.CallConfig)
	if err != nil {
		return EffectiveConfig{}, tenant.ID, err
	}

	s.cacheSet(ctx, number, cachedEntry{TenantID: tenant.ID, Config: eff})
	return eff, tenant.ID, nil
}

// ResolveForTenant resolves a tenant's effective configuration without
// touching the cache. Used by the admin API.
func (s *Service) ResolveForTenant(ctx context.Context, tenantID string) (EffectiveConfig, error) {
	cfg, err := s.tenants.GetCallConfig(ctx, tenantID)
	if err != nil {
		return EffectiveConfig{}, err
	}
	return s.defaults.Resolve(cfg)
}

// InvalidateTenant drops cached entries for every number the tenant owns.
// Called after a call configuration merge so the next webhook delivery
// sees the new document.
func (s *Service) InvalidateTenant(ctx context.Context, tenantID string) {
	if s.cache == nil {
		return
	}

	numbers, err := s.numbers.ListByTenant(ctx, tenantID)
	if err != nil {
		logger.Base().Warn("failed to list numbers for cache invalidation",
			zap.String("tenant_id", tenantID), zap.Error(err))
		return
	}

	for _, n := range numbers {
		key := s.cache.GenerateKey(redispkg.CALL_CONFIG, n.Number)
		if err := s.cache.DelValue(ctx, key); err != nil {
			logger.Base().Warn("failed to invalidate cached call config",
				zap.String("number", n.Number), zap.Error(err))
		}
	}
}

func (s *Service) cacheGet(ctx context.Context, number string) (cachedEntry, bool) {
	if s.cache == nil {
		return cachedEntry{}, false
	}

	key := s.cache.GenerateKey(redispkg.CALL_CONFIG, number)
	raw, err := s.cache.GetValue(ctx, key)
	if err != nil {
		if !errors.Is(err, redispkg.ErrKeyNotExist) {
			logger.Base().Warn("call config cache read failed", zap.String("number", number), zap.Error(err))
		}
		return cachedEntry{}, false
	}

	var entry cachedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		logger.Base().Warn("corrupt cached call config, dropping", zap.String("number", number), zap.Error(err))
		_ = s.cache.DelValue(ctx, key)
		return cachedEntry{}, false
	}

	return entry, true
}

func (s *Service) cacheSet(ctx context.Context, number string, entry cachedEntry) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	key := s.cache.GenerateKey(redispkg.CALL_CONFIG, number)
	if err := s.cache.SetValue(ctx, key, string(data), s.cacheTTL); err != nil {
		logger.Base().Warn("call config cache write failed", zap.String("number", number), zap.Error(err))
	}
}
