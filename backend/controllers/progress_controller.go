package controllers

import (
	"database/sql"

	"lifeintheuk/backend/config"
	"lifeintheuk/backend/middleware"
	"lifeintheuk/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const recentTestsLimit = 3

type ProgressController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewProgressController(db *gorm.DB, cfg *config.Config) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg}
}

// GetStats aggregates the caller's dashboard numbers. Everything is
// recomputed from the progress and result tables on every call; there are no
// stored counters to drift.
func (pc *ProgressController) GetStats(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var totalChapters, completedChapters int64
	if err := pc.DB.Model(&models.Chapter{}).Count(&totalChapters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user stats",
		})
	}
	if err := pc.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completedChapters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user stats",
		})
	}

	var totalTests, passedTests int64
	pc.DB.Model(&models.TestResult{}).Where("user_id = ?", userID).Count(&totalTests)
	pc.DB.Model(&models.TestResult{}).
		Where("user_id = ? AND passed = ?", userID, true).
		Count(&passedTests)

	// AVG/MAX come back NULL with no rows; NullFloat64 keeps that distinct
	// from a real zero so the client sees null instead of 0.00.
	var averageScore, bestScore sql.NullFloat64
	row := pc.DB.Model(&models.TestResult{}).
		Where("user_id = ?", userID).
		Select("AVG(percentage), MAX(percentage)").Row()
	if err := row.Scan(&averageScore, &bestScore); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch user stats",
		})
	}

	var recent []models.TestResult
	pc.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").Limit(recentTestsLimit).Find(&recent)

	recentTests := make([]fiber.Map, 0, len(recent))
	for _, r := range recent {
		recentTests = append(recentTests, renderTestSummary(r))
	}

	return c.JSON(fiber.Map{
		"chapters": fiber.Map{
			"total_chapters":     totalChapters,
			"completed_chapters": completedChapters,
		},
		"tests": fiber.Map{
			"total_tests":   totalTests,
			"passed_tests":  passedTests,
			"average_score": nullableScore(averageScore),
			"best_score":    nullableScore(bestScore),
		},
		"recentTests": recentTests,
	})
}

func nullableScore(value sql.NullFloat64) interface{} {
	if !value.Valid {
		return nil
	}
	return round2(value.Float64)
}

// GetProgress returns the caller's per-chapter completion list in study
// order, with chapters never opened reading as not completed.
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var chapters []models.Chapter
	if err := pc.DB.Order("order_index").Find(&chapters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch progress",
		})
	}

	result := make([]fiber.Map, 0, len(chapters))
	for _, chapter := range chapters {
		var progress models.UserProgress
		pc.DB.Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).First(&progress)

		result = append(result, fiber.Map{
			"id":            chapter.ID,
			"title":         chapter.Title,
			"completed":     progress.Completed,
			"last_accessed": progress.LastAccessed,
		})
	}

	return c.JSON(result)
}
