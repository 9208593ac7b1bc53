package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"waiver-sync/pkg/api"
	"waiver-sync/pkg/clients/shopify"
	"waiver-sync/pkg/clients/smartwaiver"
	"waiver-sync/pkg/config"
	"waiver-sync/pkg/middleware"
	"waiver-sync/pkg/services"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file")
	}

	// Initialize configuration
	cfg := config.LoadConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Template tag table: built-in defaults, optionally extended from file
	templateTags := config.DefaultTemplateTags()
	if cfg.TagMapFile != "" {
		templateTags, err = config.LoadTemplateTags(cfg.TagMapFile)
		if err != nil {
			log.Fatalf("Error loading tag map: %v", err)
		}
	}

	// Initialize API clients
	smartwaiverClient := smartwaiver.NewClient(cfg.SmartwaiverAPIKey, cfg.SmartwaiverBaseURL)
	shopifyClient := shopify.NewClient(cfg.ShopifyAccessToken, cfg.ShopifyBaseURL, logger)

	// Initialize services
	classifier := services.NewTagClassifier(templateTags)
	syncService := services.NewSyncService(
		smartwaiverClient,
		shopifyClient,
		classifier,
		cfg.PlaceholderDomain,
		logger,
	)

	// Create a new Gin router with default middleware
	router := gin.Default()

	// Add CORS middleware
	router.Use(middleware.CORS())

	// Initialize handlers and register routes
	handlers := api.NewHandlers(syncService, smartwaiverClient, cfg.SyncWindow, cfg.WebhookSecret)
	handlers.Routes(router)

	// Get port from environment or default to 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start the server
	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Error starting server: %v", err)
	}
}
