package repository

import (
	"context"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"gorm.io/gorm"
)

// TenantRepository defines the interface for tenant operations
type TenantRepository interface {
	Create(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error)

	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
	GetByPhoneNumber(ctx context.Context, number string) (*domain.Tenant, error)
	GetAll(ctx context.Context) ([]*domain.Tenant, error)

	Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error)
	Delete(ctx context.Context, id string) error

	// Call configuration operations. MergeCallConfig shallow-merges the
	// partial document into the stored one inside a single transaction so
	// that racing edits cannot drop each other's fields.
	GetCallConfig(ctx context.Context, id string) (domain.CallConfig, error)
	MergeCallConfig(ctx context.Context, id string, partial domain.CallConfig) (domain.CallConfig, error)
}

// PhoneNumberRepository defines the interface for phone number operations
type PhoneNumberRepository interface {
	Register(ctx context.Context, req *domain.RegisterPhoneNumberRequest) (*domain.PhoneNumber, error)
	GetByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*domain.PhoneNumber, error)
	Deactivate(ctx context.Context, number string) error
}

// CallLogRepository defines the interface for call log operations
type CallLogRepository interface {
	// Upsert records a call event keyed by the provider call identifier.
	// A first delivery inserts the row; later deliveries for the same
	// callSid update status and updated_at in place.
	Upsert(ctx context.Context, callSid, from, to, direction, status string) (*domain.CallLog, error)

	// GetByCallSid tolerates zero matches and returns (nil, nil) when the
	// call has not been seen.
	GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error)

	List(ctx context.Context, limit, offset int) ([]*domain.CallLog, error)
}

// RepositoryManager combines all repositories
type RepositoryManager interface {
	Tenant() TenantRepository
	PhoneNumber() PhoneNumberRepository
	CallLog() CallLogRepository

	// Transaction support
	WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connection
	Close() error
}

// GormRepositoryManager implements RepositoryManager using GORM
type GormRepositoryManager struct {
	db              *gorm.DB
	tenantRepo      *GormTenantRepository
	phoneNumberRepo *GormPhoneNumberRepository
	callLogRepo     *GormCallLogRepository
}

// NewGormRepositoryManager creates a new GORM repository manager
func NewGormRepositoryManager(db *gorm.DB) *GormRepositoryManager {
	return &GormRepositoryManager{
		db:              db,
		tenantRepo:      NewGormTenantRepository(db),
		phoneNumberRepo: NewGormPhoneNumberRepository(db),
		callLogRepo:     NewGormCallLogRepository(db),
	}
}

// Tenant returns the tenant repository
func (m *GormRepositoryManager) Tenant() TenantRepository {
	return m.tenantRepo
}

// PhoneNumber returns the phone number repository
func (m *GormRepositoryManager) PhoneNumber() PhoneNumberRepository {
	return m.phoneNumberRepo
}

// CallLog returns the call log repository
func (m *GormRepositoryManager) CallLog() CallLogRepository {
	return m.callLogRepo
}

// WithTx executes a function within a database transaction
func (m *GormRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos RepositoryManager) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewGormRepositoryManager(tx))
	})
}

// Ping checks the database connection
func (m *GormRepositoryManager) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (m *GormRepositoryManager) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
