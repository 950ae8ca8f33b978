package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// SessionRepository stores the start/stop log of each instance.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Open inserts a session with no end time.
func (r *SessionRepository) Open(ctx context.Context, instanceID uint, start time.Time) (*model.TaskSession, error) {
	session := model.TaskSession{InstanceID: instanceID, StartTime: start}
	if err := r.db.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	return &session, nil
}

// Close fills the end fields of an open session.
func (r *SessionRepository) Close(ctx context.Context, id uint, end time.Time, duration int64, summary string) error {
	res := r.db.WithContext(ctx).Model(&model.TaskSession{}).
		Where("id = ? AND end_time IS NULL", id).
		Updates(map[string]interface{}{
			"end_time": end,
			"duration": duration,
			"summary":  summary,
		})
	if res.Error != nil {
		return fmt.Errorf("close session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepository) FindByID(ctx context.Context, id uint) (*model.TaskSession, error) {
	var session model.TaskSession
	if err := r.db.WithContext(ctx).First(&session, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// FindOpen returns the newest open session of an instance.
func (r *SessionRepository) FindOpen(ctx context.Context, instanceID uint) (*model.TaskSession, error) {
	var session model.TaskSession
	if err := r.db.WithContext(ctx).
		Where("instance_id = ? AND end_time IS NULL", instanceID).
		Order("start_time DESC").
		First(&session).Error; err != nil {
		return nil, notFound(err)
	}
	return &session, nil
}

// ListOpen returns every open session, across instances.
func (r *SessionRepository) ListOpen(ctx context.Context) ([]model.TaskSession, error) {
	var sessions []model.TaskSession
	if err := r.db.WithContext(ctx).Where("end_time IS NULL").
		Order("start_time ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list open sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) ListByInstance(ctx context.Context, instanceID uint) ([]model.TaskSession, error) {
	var sessions []model.TaskSession
	if err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).
		Order("start_time ASC, id ASC").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (r *SessionRepository) CountByInstance(ctx context.Context, instanceID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TaskSession{}).
		Where("instance_id = ?", instanceID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// SumDurations adds up the closed sessions of an instance.
func (r *SessionRepository) SumDurations(ctx context.Context, instanceID uint) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.TaskSession{}).
		Select("COALESCE(SUM(duration), 0)").
		Where("instance_id = ? AND duration IS NOT NULL", instanceID).
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("sum sessions: %w", err)
	}
	return total, nil
}

// SumDurationsByInstance sums closed sessions for several instances at once.
func (r *SessionRepository) SumDurationsByInstance(ctx context.Context, instanceIDs []uint) (map[uint]int64, error) {
	totals := make(map[uint]int64, len(instanceIDs))
	if len(instanceIDs) == 0 {
		return totals, nil
	}
	var rows []struct {
		InstanceID uint
		Total      int64
	}
	if err := r.db.WithContext(ctx).Model(&model.TaskSession{}).
		Select("instance_id, COALESCE(SUM(duration), 0) AS total").
		Where("instance_id IN ? AND duration IS NOT NULL", instanceIDs).
		Group("instance_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("sum sessions: %w", err)
	}
	for _, row := range rows {
		totals[row.InstanceID] = row.Total
	}
	return totals, nil
}

func (r *SessionRepository) DeleteByInstance(ctx context.Context, instanceID uint) error {
	if err := r.db.WithContext(ctx).Where("instance_id = ?", instanceID).
		Delete(&model.TaskSession{}).Error; err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
