package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
)

// InstanceRepository handles CRUD for dated task instances.
type InstanceRepository struct {
	db *gorm.DB
}

func NewInstanceRepository(db *gorm.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func (r *InstanceRepository) Create(ctx context.Context, inst *model.TaskInstance) error {
	if err := r.db.WithContext(ctx).Create(inst).Error; err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	return nil
}

func (r *InstanceRepository) Update(ctx context.Context, inst *model.TaskInstance) error {
	if err := r.db.WithContext(ctx).Save(inst).Error; err != nil {
		return fmt.Errorf("update instance: %w", err)
	}
	return nil
}

func (r *InstanceRepository) FindByID(ctx context.Context, id uint) (*model.TaskInstance, error) {
	var inst model.TaskInstance
	if err := r.db.WithContext(ctx).First(&inst, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &inst, nil
}

// ListByDate returns the instances of one day, most urgent first.
func (r *InstanceRepository) ListByDate(ctx context.Context, date string) ([]model.TaskInstance, error) {
	var instances []model.TaskInstance
	if err := r.db.WithContext(ctx).Where("task_date = ?", date).
		Order("priority DESC, id ASC").
		Find(&instances).Error; err != nil {
		return nil, fmt.Errorf("list instances: %w", err)
	}
	return instances, nil
}

// ExistsForTemplate reports whether the template already has an instance on date.
func (r *InstanceRepository) ExistsForTemplate(ctx context.Context, date string, templateID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("task_date = ? AND template_id = ?", date, templateID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check instance: %w", err)
	}
	return count > 0, nil
}

func (r *InstanceRepository) CountByTemplate(ctx context.Context, templateID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("template_id = ?", templateID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count instances: %w", err)
	}
	return count, nil
}

// DetachTemplate turns every instance of the template into a one-off task.
func (r *InstanceRepository) DetachTemplate(ctx context.Context, templateID uint) error {
	if err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("template_id = ?", templateID).
		Updates(map[string]interface{}{
			"template_id":     nil,
			"recurrence_kind": model.RecurNone,
		}).Error; err != nil {
		return fmt.Errorf("detach template: %w", err)
	}
	return nil
}

func (r *InstanceRepository) MarkTimed(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Model(&model.TaskInstance{}).
		Where("id = ?", id).
		Update("status", model.StatusDone).Error; err != nil {
		return fmt.Errorf("mark instance timed: %w", err)
	}
	return nil
}

func (r *InstanceRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.TaskInstance{}, id).Error; err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return nil
}
