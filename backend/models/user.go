package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	GoogleID  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"not null"`
	Name      string
	Picture   string
	LastLogin time.Time
}
