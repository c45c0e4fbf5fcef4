package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"gorm.io/gorm"
)

// GormPhoneNumberRepository implements PhoneNumberRepository using GORM
type GormPhoneNumberRepository struct {
	db *gorm.DB
}

// NewGormPhoneNumberRepository creates a new GORM phone number repository
func NewGormPhoneNumberRepository(db *gorm.DB) *GormPhoneNumberRepository {
	return &GormPhoneNumberRepository{db: db}
}

// Register creates a phone number record assigned to a tenant. The unique
// index on number rejects a second registration of the same number.
func (r *GormPhoneNumberRepository) Register(ctx context.Context, req *domain.RegisterPhoneNumberRequest) (*domain.PhoneNumber, error) {
	tenantID := req.TenantID
	number := &domain.PhoneNumber{
		Number:      req.Number,
		ProviderSID: req.ProviderSID,
		Status:      domain.PhoneNumberStatusActive,
		TenantID:    &tenantID,
	}

	if err := r.db.WithContext(ctx).Create(number).Error; err != nil {
		return nil, fmt.Errorf("failed to register phone number %s: %w", req.Number, err)
	}

	return number, nil
}

// GetByNumber retrieves a phone number record by the number string
func (r *GormPhoneNumberRepository) GetByNumber(ctx context.Context, number string) (*domain.PhoneNumber, error) {
	var record domain.PhoneNumber
	if err := r.db.WithContext(ctx).First(&record, "number = ?", number).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("phone number %s: %w", number, domain.ErrTenantNotFound)
		}
		return nil, fmt.Errorf("failed to get phone number: %w", err)
	}

	return &record, nil
}

// ListByTenant retrieves all phone numbers assigned to a tenant
func (r *GormPhoneNumberRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.PhoneNumber, error) {
	var numbers []*domain.PhoneNumber
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).Order("created_at").Find(&numbers).Error; err != nil {
		return nil, fmt.Errorf("failed to list phone numbers for tenant: %w", err)
	}

	return numbers, nil
}

// Deactivate marks a phone number inactive and releases its tenant so
// the number no longer routes inbound calls.
func (r *GormPhoneNumberRepository) Deactivate(ctx context.Context, number string) error {
	result := r.db.WithContext(ctx).Model(&domain.PhoneNumber{}).
		Where("number = ?", number).
		Updates(map[string]interface{}{"status": domain.PhoneNumberStatusInactive, "tenant_id": nil})
	if result.Error != nil {
		return fmt.Errorf("failed to deactivate phone number: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("phone number %s: %w", number, domain.ErrTenantNotFound)
	}

	return nil
}
