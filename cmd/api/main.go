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
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/edukita-dev/edukita-api/internal/config"
	"github.com/edukita-dev/edukita-api/internal/database"
	"github.com/edukita-dev/edukita-api/internal/handler"
	"github.com/edukita-dev/edukita-api/internal/middleware"
	"github.com/edukita-dev/edukita-api/internal/models"
	"github.com/edukita-dev/edukita-api/internal/repository"
	"github.com/edukita-dev/edukita-api/internal/router"
	"github.com/edukita-dev/edukita-api/internal/service"
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
		&models.Course{},
		&models.AccessCode{},
		&models.CourseEnrollment{},
		&models.CourseProgress{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis url not configured; active code caching disabled")
	}

	var natsConn *nats.Conn
	if cfg.NatsURL != "" {
		natsConn, err = nats.Connect(cfg.NatsURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Close()
	} else {
		logger.Warn().Msg("nats url not configured; enrollment events disabled")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	accessCodeRepo := repository.NewAccessCodeRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	unitOfWork := repository.NewUnitOfWork(db)

	generator := service.NewCodeGenerator(service.CryptoSource{})
	issuer := service.NewCodeIssuer(generator, accessCodeRepo, logger)
	redeemer := service.NewRedemptionService(unitOfWork, logger)

	accessCodeService := service.NewAccessCodeService(service.AccessCodeServiceConfig{
		Codes:       accessCodeRepo,
		Courses:     courseRepo,
		Issuer:      issuer,
		Redeemer:    redeemer,
		Validator:   validate,
		Redis:       redisClient,
		CacheTTL:    cfg.ActiveCodesCacheTTL,
		Nats:        natsConn,
		NatsSubject: cfg.NatsSubject,
		Logger:      logger,
	})

	accessCodeHandler := handler.NewAccessCodeHandler(accessCodeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{
		Logger:       &logger,
		AllowOrigins: cfg.CORSAllowOrigins,
	})
	router.Register(app, cfg, router.Dependencies{
		AccessCodeHandler: accessCodeHandler,
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

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
