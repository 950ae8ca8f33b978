package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"daily-tracker/internal/model"
)

// MarkRepository keeps the (template, date) pairs that already got an instance.
type MarkRepository struct {
	db *gorm.DB
}

func NewMarkRepository(db *gorm.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

// Create fails with gorm.ErrDuplicatedKey when the pair is already marked.
func (r *MarkRepository) Create(ctx context.Context, templateID uint, date string) error {
	mark := model.GenerationMark{TemplateID: templateID, TaskDate: date}
	if err := r.db.WithContext(ctx).Create(&mark).Error; err != nil {
		return fmt.Errorf("create generation mark: %w", err)
	}
	return nil
}

// Ensure marks the pair, doing nothing when it is already marked.
func (r *MarkRepository) Ensure(ctx context.Context, templateID uint, date string) error {
	mark := model.GenerationMark{TemplateID: templateID, TaskDate: date}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&mark).Error
	if err != nil {
		return fmt.Errorf("ensure generation mark: %w", err)
	}
	return nil
}

func (r *MarkRepository) Exists(ctx context.Context, templateID uint, date string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.GenerationMark{}).
		Where("template_id = ? AND task_date = ?", templateID, date).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("check generation mark: %w", err)
	}
	return count > 0, nil
}

func (r *MarkRepository) DeleteByTemplate(ctx context.Context, templateID uint) error {
	if err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Delete(&model.GenerationMark{}).Error; err != nil {
		return fmt.Errorf("delete generation marks: %w", err)
	}
	return nil
}
