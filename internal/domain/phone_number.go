package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PhoneNumber statuses
const (
	PhoneNumberStatusActive   = "active"
	PhoneNumberStatusInactive = "inactive"
)

// PhoneNumber is a provider-issued number routed to a tenant. The unique
// index on number enforces that at most one tenant owns a number at any
// time; TenantID stays null until the number is assigned.
type PhoneNumber struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key"`
	Number      string    `json:"number" gorm:"type:varchar(32);uniqueIndex:uni_phone_numbers_number;not null"`
	ProviderSID string    `json:"provider_sid" gorm:"type:varchar(64)"`
	Status      string    `json:"status" gorm:"type:varchar(16);default:active"`
	TenantID    *string   `json:"tenant_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for PhoneNumber
func (PhoneNumber) TableName() string {
	return "phone_numbers"
}

// BeforeCreate assigns a UUID primary key when none is set
func (n *PhoneNumber) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// RegisterPhoneNumberRequest represents the request to register a
// provider number and assign it to a tenant.
type RegisterPhoneNumberRequest struct {
	Number      string `json:"number" validate:"required"`
	ProviderSID string `json:"provider_sid,omitempty"`
	TenantID    string `json:"tenant_id" validate:"required"`
}
