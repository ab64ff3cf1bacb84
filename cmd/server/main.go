package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opticstore/server/internal/api"
	"github.com/opticstore/server/internal/config"
	"github.com/opticstore/server/internal/repository"
	"github.com/opticstore/server/internal/service"
	"github.com/opticstore/server/internal/utils"
)

func main() {
	logger := utils.NewLogger()

	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to set up database")
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create services
	authSvc := service.NewAuthService(repo, cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	productSvc := service.NewProductService(repo)
	saleSvc := service.NewSaleService(repo)

	// Create API handler
	handler := api.NewHandler(authSvc, productSvc, saleSvc)

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestID())
	router.Use(api.RequestLogger(logger))

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info().Str("addr", serverAddr).Msg("starting server")
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
