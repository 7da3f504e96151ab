package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"lifeintheuk/backend/config"
	"lifeintheuk/backend/middleware"
	"lifeintheuk/backend/routes"
	"lifeintheuk/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Create Fiber app
	app := fiber.New()

	// Middleware; credentials must be allowed for the session cookie
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.ClientURL,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: true,
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, db, cfg)

	// Shut down on SIGINT/SIGTERM: drain in-flight requests, then close the pool
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Println("Shutting down")
		if err := app.Shutdown(); err != nil {
			logger.Printf("Error shutting down server: %v", err)
		}
	}()

	// Start server
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}

	if err := utils.CloseDB(db); err != nil {
		logger.Printf("Error closing database: %v", err)
	}
}
