package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"janusprop/server/config"
	"janusprop/server/internal/api"
	"janusprop/server/internal/database"
	"janusprop/server/internal/processor"
	"janusprop/server/internal/queue"
	"janusprop/server/internal/search"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	// Local development reads settings from .env; a missing file is fine.
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}

	logger.Infof("Using database at: %s", cfg.Database.Path)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	logger.Info("Running database migrations...")
	if err := db.RunMigrations(); err != nil {
		logger.WithError(err).Fatal("Failed to run database migrations")
	}

	// Separate gorm handle for the ingestion pipeline.
	gormDB, err := database.NewGormDB(cfg.Database.Path)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open ingestion database handle")
	}

	ingestQueue := queue.NewIngestQueue(
		cfg.Ingest.QueueSize,
		cfg.Ingest.MaxBatchSize,
		time.Duration(cfg.Ingest.MaxBatchWaitTime)*time.Second,
		logger,
	)
	batchProcessor := processor.NewBatchProcessor(gormDB, ingestQueue, cfg, logger)

	// The queue must close before the processor stops, so the workers
	// keep draining until the batch channel is exhausted.
	defer batchProcessor.Stop()
	ingestQueue.Start()
	defer ingestQueue.Close()
	batchProcessor.Start()

	engine := search.NewEngine(db, logger)
	handler := api.NewHandler(db, engine, ingestQueue, logger)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api.SetupRoutes(router, handler, []byte(cfg.Auth.JWTSecret), logger)

	logger.Infof("Starting server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.WithError(err).Fatal("Server failed to start")
	}
}
