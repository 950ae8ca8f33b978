package model

import "time"

// TaskSession is one contiguous timed interval of work on an instance.
// EndTime and Duration stay nil while the session is open.
type TaskSession struct {
	ID         uint      `gorm:"primaryKey"`
	InstanceID uint      `gorm:"not null;index"`
	StartTime  time.Time `gorm:"not null"`
	EndTime    *time.Time
	Duration   *int64 // seconds
	Summary    string
}

func (s TaskSession) Open() bool {
	return s.EndTime == nil
}
