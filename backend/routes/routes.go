package routes

import (
	"lifeintheuk/backend/config"
	"lifeintheuk/backend/controllers"
	"lifeintheuk/backend/middleware"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "OK",
			"message": "Server is running",
		})
	})

	requireAuth := middleware.RequireAuth(db, cfg)

	// Auth routes; check and the OAuth handshake are reachable anonymously
	authController := controllers.NewAuthController(db, cfg)
	auth := app.Group("/auth")
	auth.Get("/google", authController.GoogleLogin)
	auth.Get("/google/callback", authController.GoogleCallback)
	auth.Get("/check", authController.Check)
	auth.Post("/logout", requireAuth, authController.Logout)

	// Chapter routes
	chaptersController := controllers.NewChaptersController(db, cfg)
	chapters := app.Group("/api/chapters", requireAuth)
	chapters.Get("/", chaptersController.GetChapters)
	chapters.Get("/:id", chaptersController.GetChapter)
	chapters.Post("/:id/complete", chaptersController.CompleteChapter)

	// Test routes
	testsController := controllers.NewTestsController(db, cfg)
	tests := app.Group("/api/tests", requireAuth)
	tests.Get("/start", testsController.StartTest)
	tests.Post("/submit", testsController.SubmitTest)
	tests.Get("/history", testsController.GetTestHistory)
	tests.Get("/practice/:chapterId", testsController.PracticeQuestions)
	tests.Get("/:testId/results", testsController.GetTestResults)

	// Progress routes
	progressController := controllers.NewProgressController(db, cfg)
	progress := app.Group("/api/progress", requireAuth)
	progress.Get("/stats", progressController.GetStats)
	progress.Get("/", progressController.GetProgress)
}
