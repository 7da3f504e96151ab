package controllers

import (
	"errors"
	"strconv"
	"time"

	"lifeintheuk/backend/config"
	"lifeintheuk/backend/middleware"
	"lifeintheuk/backend/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChaptersController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewChaptersController(db *gorm.DB, cfg *config.Config) *ChaptersController {
	return &ChaptersController{DB: db, Cfg: cfg}
}

// GetChapters returns every chapter in study order with the caller's
// completed/last_accessed state merged in. Chapters without a progress row
// read as not completed.
func (cc *ChaptersController) GetChapters(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	var chapters []models.Chapter
	if err := cc.DB.Order("order_index").Find(&chapters).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch chapters",
		})
	}

	result := make([]fiber.Map, 0, len(chapters))
	for _, chapter := range chapters {
		var progress models.UserProgress
		cc.DB.Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).First(&progress)

		result = append(result, fiber.Map{
			"id":            chapter.ID,
			"title":         chapter.Title,
			"description":   chapter.Description,
			"content":       chapter.Content,
			"order_index":   chapter.OrderIndex,
			"completed":     progress.Completed,
			"last_accessed": progress.LastAccessed,
		})
	}

	return c.JSON(result)
}

// GetChapter returns a single chapter. Reading a chapter is a documented
// read-with-side-effect: it upserts the caller's last_accessed timestamp.
func (cc *ChaptersController) GetChapter(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	chapterID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chapter ID",
		})
	}

	var chapter models.Chapter
	if err := cc.DB.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Chapter not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch chapter",
		})
	}

	if err := cc.touchProgress(userID, chapter.ID, false); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch chapter",
		})
	}

	var progress models.UserProgress
	cc.DB.Where("user_id = ? AND chapter_id = ?", userID, chapter.ID).First(&progress)

	return c.JSON(fiber.Map{
		"id":            chapter.ID,
		"title":         chapter.Title,
		"description":   chapter.Description,
		"content":       chapter.Content,
		"order_index":   chapter.OrderIndex,
		"completed":     progress.Completed,
		"last_accessed": progress.LastAccessed,
	})
}

// CompleteChapter marks a chapter as completed. Idempotent: repeating it
// leaves the same single progress row, with last_accessed advanced.
func (cc *ChaptersController) CompleteChapter(c *fiber.Ctx) error {
	userID := middleware.CurrentUserID(c)

	chapterID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid chapter ID",
		})
	}

	var chapter models.Chapter
	if err := cc.DB.First(&chapter, chapterID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Chapter not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark chapter as completed",
		})
	}

	if err := cc.touchProgress(userID, chapter.ID, true); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to mark chapter as completed",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Chapter marked as completed",
	})
}

// touchProgress upserts the (user, chapter) progress row, relying on the
// unique index plus ON CONFLICT so concurrent requests never duplicate it.
// Completion is sticky: a plain view never resets completed back to false.
func (cc *ChaptersController) touchProgress(userID, chapterID uint, complete bool) error {
	now := time.Now()
	progress := models.UserProgress{
		UserID:       userID,
		ChapterID:    chapterID,
		Completed:    complete,
		LastAccessed: &now,
	}

	assignments := map[string]interface{}{"last_accessed": now}
	if complete {
		assignments["completed"] = true
	}

	return cc.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chapter_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&progress).Error
}
