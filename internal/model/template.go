package model

import "time"

// TaskTemplate is the blueprint recurring instances are generated from.
type TaskTemplate struct {
	ID                uint   `gorm:"primaryKey"`
	Title             string `gorm:"not null"`
	Description       string
	EstimatedDuration int64          // seconds
	Priority          Priority       `gorm:"default:0"`
	RecurrenceKind    RecurrenceKind `gorm:"not null"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
