package controllers

import (
	"errors"
	"math"
	"strconv"

	"lifeintheuk/backend/config"
	"lifeintheuk/backend/middleware"
	"lifeintheuk/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// passMark is the fixed pass threshold of the real Life in the UK test.
const passMark = 75.0

const (
	defaultTestCount     = 24
	defaultPracticeCount = 10
	historyLimit         = 10
)

type TestsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewTestsController(db *gorm.DB, cfg *config.Config) *TestsController {
	return &TestsController{DB: db, Cfg: cfg}
}

// StartTest returns a random sample of questions for a mock test. Correct
// answers and explanations never leave the server before submission. A pool
// smaller than the requested count returns everything available.
func (tc *TestsController) StartTest(c *fiber.Ctx) error {
	count := c.QueryInt("count", defaultTestCount)
	if count < 1 {
		count = defaultTestCount
	}

	var questions []models.Question
	if err := tc.DB.Order("RANDOM()").Limit(count).Find(&questions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate test",
		})
	}

	return c.JSON(fiber.Map{
		"questions":      renderQuestions(questions),
		"totalQuestions": len(questions),
	})
}

// PracticeQuestions returns random questions restricted to one chapter.
func (tc *TestsController) PracticeQuestions(c *fiber.Ctx) error {
	chapterID, err := strconv.Atoi(c.Params("chapterId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chapter ID",
		})
	}

	count := c.QueryInt("count", defaultPracticeCount)
	if count < 1 {
		count = defaultPracticeCount
	}

	var chapter models.Chapter
	if err := tc.DB.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Chapter not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch practice questions",
		})
	}

	var questions []models.Question
	if err := tc.DB.Where("chapter_id = ?", chapterID).
		Order("RANDOM()").Limit(count).Find(&questions).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch practice questions",
		})
	}

	return c.JSON(renderQuestions(questions))
}

// renderQuestions shapes questions for the client, with the grading fields
// (correct_answer, explanation) stripped.
func renderQuestions(questions []models.Question) []fiber.Map {
	result := make([]fiber.Map, 0, len(questions))
	for _, q := range questions {
		result = append(result, fiber.Map{
			"id":            q.ID,
			"question_text": q.QuestionText,
			"option_a":      q.OptionA,
			"option_b":      q.OptionB,
			"option_c":      q.OptionC,
			"option_d":      q.OptionD,
			"difficulty":    q.Difficulty,
		})
	}
	return result
}

type answerInput struct {
	QuestionID uint   `json:"questionId"`
	UserAnswer string `json:"userAnswer"`
}

type submitInput struct {
	Answers   []answerInput `json:"answers"`
	TimeTaken *int          `json:"timeTaken"`
}

type answerResult struct {
	QuestionID    uint    `json:"questionId"`
	UserAnswer    *string `json:"userAnswer"`
	CorrectAnswer string  `json:"correctAnswer"`
	IsCorrect     bool    `json:"isCorrect"`
}

// SubmitTest grades a batch of answers and persists the attempt. The header
// row and the per-question rows are written in one transaction: a failure
// anywhere rolls everything back, so no partial attempt is ever visible.
//
// Answers referencing unknown question IDs are dropped rather than failing
// the whole submission; they never reach the persisted detail rows.
func (tc *TestsController) SubmitTest(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var input submitInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if len(input.Answers) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No answers submitted",
		})
	}

	var (
		testResult models.TestResult
		details    []answerResult
	)

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		questionIDs := make([]uint, 0, len(input.Answers))
		for _, answer := range input.Answers {
			questionIDs = append(questionIDs, answer.QuestionID)
		}

		var questions []models.Question
		if err := tx.Where("id IN ?", questionIDs).Find(&questions).Error; err != nil {
			return err
		}

		correctAnswers := make(map[uint]string, len(questions))
		for _, q := range questions {
			correctAnswers[q.ID] = q.CorrectAnswer
		}

		score := 0
		details = details[:0]
		rows := make([]models.TestQuestion, 0, len(input.Answers))
		for _, answer := range input.Answers {
			correct, known := correctAnswers[answer.QuestionID]
			if !known {
				continue
			}

			isCorrect := answer.UserAnswer == correct
			if isCorrect {
				score++
			}

			var userAnswer *string
			if answer.UserAnswer != "" {
				a := answer.UserAnswer
				userAnswer = &a
			}

			details = append(details, answerResult{
				QuestionID:    answer.QuestionID,
				UserAnswer:    userAnswer,
				CorrectAnswer: correct,
				IsCorrect:     isCorrect,
			})
			rows = append(rows, models.TestQuestion{
				QuestionID: answer.QuestionID,
				UserAnswer: userAnswer,
				IsCorrect:  isCorrect,
			})
		}

		if len(rows) == 0 {
			return errNoValidAnswers
		}

		totalQuestions := len(rows)
		percentage := round2(float64(score) / float64(totalQuestions) * 100)

		testResult = models.TestResult{
			UserID:         userID,
			Score:          score,
			TotalQuestions: totalQuestions,
			Percentage:     percentage,
			Passed:         percentage >= passMark,
			TimeTaken:      input.TimeTaken,
		}
		if err := tx.Create(&testResult).Error; err != nil {
			return err
		}

		for i := range rows {
			rows[i].TestResultID = testResult.ID
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, errNoValidAnswers) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No valid answers submitted",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to submit test",
		})
	}

	return c.JSON(fiber.Map{
		"testResultId":   testResult.ID,
		"score":          testResult.Score,
		"totalQuestions": testResult.TotalQuestions,
		"percentage":     testResult.Percentage,
		"passed":         testResult.Passed,
		"results":        details,
	})
}

var errNoValidAnswers = errors.New("no valid answers")

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// GetTestHistory returns the caller's most recent attempts, newest first.
func (tc *TestsController) GetTestHistory(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var results []models.TestResult
	if err := tc.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Limit(historyLimit).Find(&results).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch test history",
		})
	}

	history := make([]fiber.Map, 0, len(results))
	for _, r := range results {
		history = append(history, renderTestSummary(r))
	}

	return c.JSON(history)
}

func renderTestSummary(r models.TestResult) fiber.Map {
	return fiber.Map{
		"id":              r.ID,
		"score":           r.Score,
		"total_questions": r.TotalQuestions,
		"percentage":      r.Percentage,
		"passed":          r.Passed,
		"time_taken":      r.TimeTaken,
		"test_date":       r.CreatedAt,
	}
}

// GetTestResults returns the full per-question review for one attempt,
// including correct answers and explanations. The ownership check runs
// first: another user's attempt is indistinguishable from a missing one.
func (tc *TestsController) GetTestResults(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	testID, err := strconv.Atoi(c.Params("testId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid test ID",
		})
	}

	var testResult models.TestResult
	if err := tc.DB.Where("id = ? AND user_id = ?", testID, userID).
		First(&testResult).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Test not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch test results",
		})
	}

	var rows []models.TestQuestion
	if err := tc.DB.Where("test_result_id = ?", testResult.ID).
		Order("id").Find(&rows).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch test results",
		})
	}

	questions := make([]fiber.Map, 0, len(rows))
	for _, row := range rows {
		var question models.Question
		if err := tc.DB.First(&question, row.QuestionID).Error; err != nil {
			continue
		}

		questions = append(questions, fiber.Map{
			"question_id":    row.QuestionID,
			"user_answer":    row.UserAnswer,
			"is_correct":     row.IsCorrect,
			"question_text":  question.QuestionText,
			"option_a":       question.OptionA,
			"option_b":       question.OptionB,
			"option_c":       question.OptionC,
			"option_d":       question.OptionD,
			"correct_answer": question.CorrectAnswer,
			"explanation":    question.Explanation,
		})
	}

	return c.JSON(fiber.Map{
		"test":      renderTestSummary(testResult),
		"questions": questions,
	})
}
