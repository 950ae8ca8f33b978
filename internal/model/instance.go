package model

import "time"

// TaskInstance is one dated occurrence of a task.
type TaskInstance struct {
	ID                uint   `gorm:"primaryKey"`
	Title             string `gorm:"not null"`
	Description       string
	TaskDate          string `gorm:"not null;index;uniqueIndex:idx_instance_date_template"`
	EstimatedDuration int64  // seconds
	Priority          Priority       `gorm:"default:0"`
	Status            Status         `gorm:"default:0"`
	RecurrenceKind    RecurrenceKind `gorm:"default:0"`
	TemplateID        *uint          `gorm:"index;uniqueIndex:idx_instance_date_template"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Recurring reports whether the instance belongs to a template.
func (t TaskInstance) Recurring() bool {
	return t.TemplateID != nil
}
