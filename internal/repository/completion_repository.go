package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// PriorityStat aggregates completed tasks of one priority.
type PriorityStat struct {
	Priority      model.Priority
	Count         int64
	TotalDuration int64
}

// DayStat aggregates completed tasks of one task_date.
type DayStat struct {
	TaskDate      string
	Count         int64
	TotalDuration int64
}

// Statistics summarizes completion records since a date.
type Statistics struct {
	TotalCompleted int64
	TotalDuration  int64
	ByPriority     []PriorityStat
	ByDay          []DayStat
}

// CompletionRepository stores the completed-task history.
type CompletionRepository struct {
	db *gorm.DB
}

func NewCompletionRepository(db *gorm.DB) *CompletionRepository {
	return &CompletionRepository{db: db}
}

func (r *CompletionRepository) Create(ctx context.Context, record *model.CompletionRecord) error {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("create completion record: %w", err)
	}
	return nil
}

func (r *CompletionRepository) FindByID(ctx context.Context, id uint) (*model.CompletionRecord, error) {
	var record model.CompletionRecord
	if err := r.db.WithContext(ctx).First(&record, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &record, nil
}

// ListSince returns records with task_date >= since, newest completion first.
func (r *CompletionRepository) ListSince(ctx context.Context, since string) ([]model.CompletionRecord, error) {
	var records []model.CompletionRecord
	if err := r.db.WithContext(ctx).Where("task_date >= ?", since).
		Order("completed_at DESC, id DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list completion records: %w", err)
	}
	return records, nil
}

func (r *CompletionRepository) Statistics(ctx context.Context, since string) (Statistics, error) {
	var stats Statistics
	db := r.db.WithContext(ctx).Model(&model.CompletionRecord{}).
		Where("task_date >= ?", since).
		Session(&gorm.Session{})

	var totals struct {
		Count int64
		Total int64
	}
	if err := db.
		Select("COUNT(*) AS count, COALESCE(SUM(total_duration), 0) AS total").
		Scan(&totals).Error; err != nil {
		return stats, fmt.Errorf("count completions: %w", err)
	}
	stats.TotalCompleted = totals.Count
	stats.TotalDuration = totals.Total

	if err := db.
		Select("priority, COUNT(*) AS count, COALESCE(SUM(total_duration), 0) AS total_duration").
		Group("priority").
		Order("priority DESC").
		Scan(&stats.ByPriority).Error; err != nil {
		return stats, fmt.Errorf("group completions by priority: %w", err)
	}

	if err := db.
		Select("task_date, COUNT(*) AS count, COALESCE(SUM(total_duration), 0) AS total_duration").
		Group("task_date").
		Order("task_date DESC").
		Scan(&stats.ByDay).Error; err != nil {
		return stats, fmt.Errorf("group completions by day: %w", err)
	}

	return stats, nil
}
