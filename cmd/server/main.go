package main

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/olawanle/timebank-server/internal/api"
	"github.com/olawanle/timebank-server/internal/config"
	"github.com/olawanle/timebank-server/internal/logger"
	"github.com/olawanle/timebank-server/internal/repository"
	"github.com/olawanle/timebank-server/internal/service"
)

func main() {
	// Load .env for local development; real deployments use the environment
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg(".env file not found")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init("timebank-server", cfg.Server.Debug)

	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up database")
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc)

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.Server.AllowedOrigins},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
	}))

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", serverAddr).Msg("Starting server")
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
