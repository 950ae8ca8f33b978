package model

import "time"

// GenerationMark records that a template already has its instance for a
// date. It outlives the instance, so completing or deleting that instance
// does not make the date eligible again.
type GenerationMark struct {
	ID         uint   `gorm:"primaryKey"`
	TemplateID uint   `gorm:"not null;uniqueIndex:idx_mark_template_date"`
	TaskDate   string `gorm:"not null;uniqueIndex:idx_mark_template_date"`
	CreatedAt  time.Time
}
