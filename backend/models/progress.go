package models

import (
	"time"

	"gorm.io/gorm"
)

// UserProgress tracks one user's state for one chapter. The composite unique
// index backs the ON CONFLICT upsert used by chapter views and completions.
type UserProgress struct {
	gorm.Model
	UserID       uint `gorm:"not null;uniqueIndex:idx_user_chapter"`
	ChapterID    uint `gorm:"not null;uniqueIndex:idx_user_chapter"`
	Completed    bool `gorm:"default:false"`
	LastAccessed *time.Time
}

func (UserProgress) TableName() string {
	return "user_progress"
}
