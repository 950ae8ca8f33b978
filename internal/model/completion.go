package model

import "time"

// CompletionRecord is the denormalized history entry written when an
// instance completes. It keeps no reference to the deleted instance.
type CompletionRecord struct {
	ID            uint   `gorm:"primaryKey"`
	Title         string `gorm:"not null"`
	Description   string
	TaskDate      string    `gorm:"not null;index"`
	CompletedAt   time.Time `gorm:"index"`
	TotalDuration int64     // seconds
	Priority      Priority  `gorm:"default:0"`
	Summary       string
}
