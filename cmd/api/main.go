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
	"github.com/golang-jwt/jwt/v5"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/peerflow-api/internal/config"
	"github.com/noah-isme/peerflow-api/internal/database"
	"github.com/noah-isme/peerflow-api/internal/handler"
	"github.com/noah-isme/peerflow-api/internal/middleware"
	"github.com/noah-isme/peerflow-api/internal/models"
	"github.com/noah-isme/peerflow-api/internal/repository"
	"github.com/noah-isme/peerflow-api/internal/router"
	"github.com/noah-isme/peerflow-api/internal/service"
	"github.com/noah-isme/peerflow-api/pkg/authkeys"
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

	err = db.AutoMigrate(
		&models.Rubric{},
		&models.Criterion{},
		&models.ReviewAssignment{},
		&models.Pairing{},
		&models.AggregateByAssignment{},
		&models.AggregateBySubmission{},
		&models.AggregateByReview{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	events := service.NewNATSPublisher(natsConn, cfg.NATSSubjectBase, logger)

	rubricRepo := repository.NewRubricRepository(db)
	reviewRepo := repository.NewReviewAssignmentRepository(db)
	aggregateRepo := repository.NewAggregateRepository(db)

	reviewService := service.NewReviewAssignmentService(reviewRepo, rubricRepo, validate, events, logger)
	resultService := service.NewReviewResultService(reviewRepo, rubricRepo, validate, events, logger)
	aggregationService := service.NewAggregationService(reviewRepo, aggregateRepo, redisClient, events, logger)
	queryService := service.NewAggregateQueryService(aggregateRepo, redisClient, cfg.AggregateCacheTTL, logger)

	reviewHandler := handler.NewReviewAssignmentHandler(reviewService, resultService, validate, logger)
	aggregationHandler := handler.NewAggregationHandler(aggregationService, queryService, logger)

	var jwtMiddleware fiber.Handler
	if cfg.AuthServiceURL != "" {
		keyCache := authkeys.New(cfg.AuthServiceURL, cfg.AuthKeyTTL, cfg.AuthFetchTimeout, logger)
		jwtMiddleware = middleware.AuthProtected(func(c *fiber.Ctx, token string) (jwt.MapClaims, error) {
			return keyCache.VerifyToken(c.Context(), token)
		})
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ReviewAssignmentHandler: reviewHandler,
		AggregationHandler:      aggregationHandler,
		JWTMiddleware:           jwtMiddleware,
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
