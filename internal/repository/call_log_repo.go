package repository

import (
	"context"
	"fmt"

	"github.com/CallPilotAI/callpilot-voice-service/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCallLogRepository implements CallLogRepository using GORM
type GormCallLogRepository struct {
	db *gorm.DB
}

// NewGormCallLogRepository creates a new GORM call log repository
func NewGormCallLogRepository(db *gorm.DB) *GormCallLogRepository {
	return &GormCallLogRepository{db: db}
}

// Upsert records a call event keyed by call_sid. The insert conflicts on
// the unique call_sid index for repeat deliveries and updates status and
// updated_at in place, so concurrent deliveries for the same call
// serialize at the storage layer (last write wins on status).
func (r *GormCallLogRepository) Upsert(ctx context.Context, callSid, from, to, direction, status string) (*domain.CallLog, error) {
	record := &domain.CallLog{
		CallSid:    callSid,
		FromNumber: from,
		ToNumber:   to,
		Direction:  direction,
		Status:     status,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "call_sid"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert call log %s (%v): %w", callSid, err, domain.ErrPersistence)
	}

	// Reload to return the surviving row rather than the insert candidate.
	current, err := r.GetByCallSid(ctx, callSid)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return record, nil
	}
	return current, nil
}

// GetByCallSid looks up a call log by its provider identifier. The lookup
// is find-first-or-none: a call that was never recorded yields (nil, nil),
// not an error.
func (r *GormCallLogRepository) GetByCallSid(ctx context.Context, callSid string) (*domain.CallLog, error) {
	var logs []domain.CallLog
	if err := r.db.WithContext(ctx).Where("call_sid = ?", callSid).Limit(1).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to get call log %s (%v): %w", callSid, err, domain.ErrPersistence)
	}
	if len(logs) == 0 {
		return nil, nil
	}

	return &logs[0], nil
}

// List retrieves call logs ordered by most recent activity
func (r *GormCallLogRepository) List(ctx context.Context, limit, offset int) ([]*domain.CallLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var logs []*domain.CallLog
	query := r.db.WithContext(ctx).Order("updated_at DESC").Limit(limit)
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list call logs (%v): %w", err, domain.ErrPersistence)
	}

	return logs, nil
}

var _ CallLogRepository = (*GormCallLogRepository)(nil)
