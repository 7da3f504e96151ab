package models

import "gorm.io/gorm"

// TestResult is one scored attempt. Immutable once written; CreatedAt is the
// test date. Percentage is stored rounded to two decimals and Passed is
// derived from the rounded value (pass mark 75%).
type TestResult struct {
	gorm.Model
	UserID         uint `gorm:"not null;index"`
	Score          int
	TotalQuestions int
	Percentage     float64
	Passed         bool
	TimeTaken      *int           // seconds
	Questions      []TestQuestion `gorm:"foreignKey:TestResultID"`
}

// TestQuestion is the per-question outcome of an attempt, one row per graded
// answer pair, in submission order. UserAnswer is nil when unanswered.
type TestQuestion struct {
	gorm.Model
	TestResultID uint    `gorm:"not null;index"`
	QuestionID   uint    `gorm:"not null"`
	UserAnswer   *string `gorm:"size:1"`
	IsCorrect    bool
}
