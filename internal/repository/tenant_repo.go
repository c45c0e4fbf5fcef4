package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTenantRepository implements TenantRepository using GORM
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GORM tenant repository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

// Create creates a new tenant
func (r *GormTenantRepository) Create(ctx context.Context, req *domain.CreateTenantRequest) (*domain.Tenant, error) {
	tenant := &domain.Tenant{
		CompanyName:  req.CompanyName,
		ContactEmail: req.ContactEmail,
		CallConfig:   req.CallConfig,
	}

	if err := r.db.WithContext(ctx).Create(tenant).Error; err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	return tenant, nil
}

// GetByID retrieves a tenant by ID
func (r *GormTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &tenant, nil
}

// GetByPhoneNumber retrieves the tenant owning an active phone number.
// The unique index on phone_numbers.number guarantees at most one owner.
func (r *GormTenantRepository) GetByPhoneNumber(ctx context.Context, number string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).
		Joins("JOIN phone_numbers ON phone_numbers.tenant_id = tenants.id").
		Where("phone_numbers.number = ? AND phone_numbers.status = ?", number, domain.PhoneNumberStatusActive).
		First(&tenant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("no tenant owns number %s: %w", number, domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("failed to get tenant by phone number: %w", err)
	}

	return &tenant, nil
}

// GetAll retrieves all tenants
func (r *GormTenantRepository) GetAll(ctx context.Context) ([]*domain.Tenant, error) {
	var tenants []*domain.Tenant
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&tenants).Error; err != nil {
		return nil, fmt.Errorf("failed to get tenants: %w", err)
	}

	return tenants, nil
}

// Update updates tenant metadata
func (r *GormTenantRepository) Update(ctx context.Context, id string, req *domain.UpdateTenantRequest) (*domain.Tenant, error) {
	var tenant domain.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("failed to find tenant: %w", err)
	}

	updates := make(map[string]interface{})
	if req.CompanyName != nil {
		updates["company_name"] = *req.CompanyName
	}
	if req.ContactEmail != nil {
		updates["contact_email"] = *req.ContactEmail
	}

	if len(updates) == 0 {
		return &tenant, nil // No changes
	}

	if err := r.db.WithContext(ctx).Model(&tenant).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	return &tenant, nil
}

// Delete removes a tenant and releases its phone numbers
func (r *GormTenantRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.PhoneNumber{}).
			Where("tenant_id = ?", id).
			Updates(map[string]interface{}{"tenant_id": nil, "status": domain.PhoneNumberStatusInactive}).Error; err != nil {
			return fmt.Errorf("failed to release phone numbers: %w", err)
		}

		result := tx.Delete(&domain.Tenant{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete tenant: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
		}
		return nil
	})
}

// GetCallConfig retrieves the stored call configuration document
func (r *GormTenantRepository) GetCallConfig(ctx context.Context, id string) (domain.CallConfig, error) {
	tenant, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.CallConfig{}, err
	}
	return tenant.CallConfig, nil
}

// MergeCallConfig shallow-merges partial into the stored document. The
// read-modify-write happens under a row lock in one transaction so two
// racing merges serialize instead of overwriting each other's fields.
func (r *GormTenantRepository) MergeCallConfig(ctx context.Context, id string, partial domain.CallConfig) (domain.CallConfig, error) {
	var merged domain.CallConfig
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant domain.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tenant, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("tenant %s: %w", id, domain.ErrTenantNotFound)
			}
			return fmt.Errorf("failed to load tenant for merge: %w", err)
		}

		merged = tenant.CallConfig.Merge(partial)
		if err := tx.Model(&tenant).Update("call_config", merged).Error; err != nil {
			return fmt.Errorf("failed to store merged call config: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.CallConfig{}, err
	}

	return merged, nil
}
