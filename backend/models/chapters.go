package models

import "gorm.io/gorm"

type Chapter struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Description string
	Content     string `gorm:"type:text"`
	OrderIndex  int    `gorm:"index"`
	Questions   []Question
}

// Question is static reference data: a multiple-choice item with two to four
// options. CorrectAnswer is the letter of a present option; options C and D
// may be absent. ChapterID is nil for general-pool questions.
type Question struct {
	gorm.Model
	ChapterID     *uint  `gorm:"index"`
	QuestionText  string `gorm:"type:text;not null"`
	OptionA       string `gorm:"not null"`
	OptionB       string `gorm:"not null"`
	OptionC       *string
	OptionD       *string
	CorrectAnswer string `gorm:"size:1;not null"` // A, B, C or D
	Explanation   string `gorm:"type:text"`
	Difficulty    string // easy, medium, hard
}
