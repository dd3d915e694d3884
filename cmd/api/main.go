package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gifttech/academy-api/internal/config"
	"github.com/gifttech/academy-api/internal/database"
	"github.com/gifttech/academy-api/internal/handler"
	"github.com/gifttech/academy-api/internal/middleware"
	"github.com/gifttech/academy-api/internal/models"
	"github.com/gifttech/academy-api/internal/repository"
	"github.com/gifttech/academy-api/internal/router"
	"github.com/gifttech/academy-api/internal/service"
	cloud "github.com/gifttech/academy-api/pkg/cloudinary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.CourseProgress{},
		&models.ActivityLog{},
		&models.UploadRecord{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Caching is optional: with no Redis URL configured the services fall
	// back to hitting the database on every request.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured, caching disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	progressRepo := repository.NewProgressRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)
	uploadRepo := repository.NewUploadRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	catalogService := service.NewCatalogService(courseRepo, validate, redisClient, cfg.CatalogCacheTTL, logger)
	enrollmentService := service.NewEnrollmentService(
		courseRepo, userRepo, enrollmentRepo, progressRepo,
		activityService, validate, redisClient, cfg.ProgressCacheTTL, logger,
	)
	userService := service.NewUserService(userRepo, validate, logger)
	authService := service.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.JWTTTL, logger)
	seedService := service.NewSeedService(courseRepo, userRepo, cfg.SeedEnabled, cfg.SeedToken, logger)

	deps := router.Dependencies{
		AuthHandler:     handler.NewAuthHandler(authService, logger),
		CourseHandler:   handler.NewCourseHandler(catalogService, enrollmentService, logger),
		UserHandler:     handler.NewUserHandler(userService, enrollmentService, logger),
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		SeedHandler:     handler.NewSeedHandler(seedService, logger),
	}

	// Media uploads stay disabled unless Cloudinary credentials are present.
	if cfg.CloudinaryCloudName != "" {
		uploader, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploadService := service.NewUploadService(uploader, uploadRepo, cfg.UploadMaxMB, logger)
		deps.UploadHandler = handler.NewUploadHandler(uploadService, logger)
	} else {
		logger.Warn().Msg("cloudinary not configured, uploads disabled")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, deps)

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
