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

	"github.com/noah-isme/gema-assessment-api/internal/assessment"
	"github.com/noah-isme/gema-assessment-api/internal/config"
	"github.com/noah-isme/gema-assessment-api/internal/database"
	"github.com/noah-isme/gema-assessment-api/internal/handler"
	"github.com/noah-isme/gema-assessment-api/internal/middleware"
	"github.com/noah-isme/gema-assessment-api/internal/models"
	"github.com/noah-isme/gema-assessment-api/internal/repository"
	"github.com/noah-isme/gema-assessment-api/internal/router"
	"github.com/noah-isme/gema-assessment-api/internal/service"
	"github.com/noah-isme/gema-assessment-api/pkg/ai"
	cloud "github.com/noah-isme/gema-assessment-api/pkg/cloudinary"
	"github.com/noah-isme/gema-assessment-api/pkg/tika"
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

	if err := db.AutoMigrate(&models.Student{}, &models.CodingAssessment{}); err != nil {
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
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable; assessment events go to redis only")
		} else {
			defer natsConn.Close()
		}
	}

	cloudCfg := cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}
	storage, err := cloud.New(cloudCfg, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("cloudinary uploads disabled; resume fetch only")
		storage = cloud.NewFetcher(cloudCfg, logger)
	}

	aiClient, err := ai.NewClient(context.Background(), ai.Config{
		Provider:        cfg.AIProvider,
		OpenAIAPIKey:    cfg.OpenAIAPIKey,
		OpenAIModel:     cfg.OpenAIModel,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
		GeminiAPIKey:    cfg.GeminiAPIKey,
		GeminiModel:     cfg.GeminiModel,
		MaxTokens:       cfg.AIMaxTokens,
		Timeout:         cfg.AITimeout,
		Logger:          logger,
	})
	if err != nil {
		log.Fatalf("failed to create ai client: %v", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	studentRepo := repository.NewStudentRepository(db)
	assessmentRepo := repository.NewCodingAssessmentRepository(db)

	var decoder assessment.DocumentDecoder
	if cfg.TikaURL != "" {
		decoder = tika.New(cfg.TikaURL, 0, logger)
	} else {
		logger.Warn().Msg("tika url not set; only plain text resumes are accepted")
	}

	mock := assessment.NewMockProvider(assessment.NewLockedRand(time.Now().UnixNano()))
	extractor := assessment.NewTextExtractor(storage, decoder, redisClient, cfg.ResumeCacheTTL, logger)
	generator := assessment.NewQuestionGenerator(aiClient, logger)
	reviewer := assessment.NewAnswerReviewer(aiClient, mock, cfg.ReviewConcurrency, logger)
	events := service.NewAssessmentEventPublisher(redisClient, natsConn, cfg.EventChannel, logger)

	assessmentService := service.NewCodingAssessmentService(
		assessmentRepo,
		studentRepo,
		extractor,
		generator,
		reviewer,
		mock,
		events,
		validate,
		logger,
		service.CodingAssessmentConfig{
			GenerationMock:     cfg.GenerationMock,
			GenerationFallback: cfg.GenerationFallback,
			ReviewMock:         cfg.ReviewMock,
			ReviewFallback:     cfg.ReviewFallback,
		},
	)
	resumeService := service.NewResumeService(storage, studentRepo, cfg.ResumeMaxSizeMB, decoder != nil, logger)

	var limiterStorage fiber.Storage
	if redisClient != nil {
		limiterStorage = middleware.NewRedisLimiterStorage(redisClient, cfg.EventChannel)
	}
	assessmentHandler := handler.NewCodingAssessmentHandler(assessmentService, validate, logger,
		middleware.RateLimit("assessment-generate", cfg.GenerateRateLimit, cfg.GenerateRateWindow, limiterStorage))
	resumeHandler := handler.NewResumeHandler(resumeService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.ResumeMaxSizeMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		CodingAssessmentHandler: assessmentHandler,
		ResumeHandler:           resumeHandler,
		JWTMiddleware:           middleware.JWTProtected(cfg.JWTSecret),
		ExposeMetrics:           true,
	})

	logger.Info().
		Bool("ai_available", aiClient.Available()).
		Str("ai_provider", aiClient.ProviderName()).
		Bool("generation_mock", cfg.GenerationMock).
		Bool("review_mock", cfg.ReviewMock).
		Msg("assessment pipeline configured")

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
