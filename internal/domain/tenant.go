package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a customer account owning phone numbers and call
// behavior configuration. The embedded call_config document is the single
// source of truth for call behavior; there is no separate greeting column.
type Tenant struct {
	ID           string        `json:"id" gorm:"type:uuid;primary_key"`
	CompanyName  string        `json:"company_name" gorm:"type:varchar(255);not null"`
	ContactEmail string        `json:"contact_email" gorm:"type:varchar(255)"`
	CallConfig   CallConfig    `json:"call_config" gorm:"type:jsonb"`
	PhoneNumbers []PhoneNumber `json:"phone_numbers,omitempty" gorm:"foreignKey:TenantID"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for Tenant
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate assigns a UUID primary key when none is set
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// CreateTenantRequest represents the request to create a new tenant
type CreateTenantRequest struct {
	CompanyName  string     `json:"company_name" validate:"required"`
	ContactEmail string     `json:"contact_email,omitempty"`
	CallConfig   CallConfig `json:"call_config,omitempty"`
}

// UpdateTenantRequest represents the request to update tenant metadata.
// Call configuration changes go through the merge endpoint instead.
type UpdateTenantRequest struct {
	CompanyName  *string `json:"company_name,omitempty"`
	ContactEmail *string `json:"contact_email,omitempty"`
}
