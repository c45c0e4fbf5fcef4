package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Call lifecycle statuses as delivered by the provider.
const (
	CallStatusRinging    = "ringing"
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusFailed     = "failed"
)

// IsTerminalCallStatus reports whether a status ends the call lifecycle.
func IsTerminalCallStatus(status string) bool {
	return status == CallStatusCompleted || status == CallStatusFailed
}

// CallLog records one telephone call. CallSid is the provider-assigned
// identifier and the idempotency key: the same call may be reported
// several times (ringing, in-progress, completed) and must always land on
// the same row, updated in place.
type CallLog struct {
	ID         string    `json:"id" gorm:"type:uuid;primary_key"`
	CallSid    string    `json:"call_sid" gorm:"type:varchar(64);uniqueIndex:uni_call_logs_call_sid;not null"`
	FromNumber string    `json:"from_number" gorm:"type:varchar(32)"`
	ToNumber   string    `json:"to_number" gorm:"type:varchar(32)"`
	Direction  string    `json:"direction" gorm:"type:varchar(16)"`
	Status     string    `json:"status" gorm:"type:varchar(16);not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName sets the table name for CallLog
func (CallLog) TableName() string {
	return "call_logs"
}

// BeforeCreate assigns a UUID primary key when none is set
func (c *CallLog) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
