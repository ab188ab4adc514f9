package main

import (
	"log"
	"net/http"
	"os"

	"affiliate/config"
	"affiliate/jobs"
	"affiliate/repository"
	"affiliate/routes"
	"affiliate/services"
	"affiliate/services/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file, falling back to environment: %v", err)
	}

	router, m, c, err := config.InitApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	if err := config.MigrateDB(config.DB); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}

	rollingVolumeService := services.NewRollingVolumeService(
		repository.NewGormStore(config.DB),
		logger.NewDefaultLogger(logger.InfoLevel),
	)
	jobs.SetRollingVolumeMaintainer(rollingVolumeService)

	if err := jobs.InitCronJobs(c); err != nil {
		log.Fatalf("Failed to initialize cron jobs: %v", err)
	}

	config.InitWebSocket(router, m)

	routes.SetupRoutes(router, config.DB, config.RedisClient, m)

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	log.Println("Server starting on port " + port + "...")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
