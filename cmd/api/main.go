package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/qna-go-api/internal/config"
	"github.com/noah-isme/qna-go-api/internal/database"
	"github.com/noah-isme/qna-go-api/internal/dto"
	"github.com/noah-isme/qna-go-api/internal/handler"
	"github.com/noah-isme/qna-go-api/internal/identity"
	"github.com/noah-isme/qna-go-api/internal/middleware"
	"github.com/noah-isme/qna-go-api/internal/models"
	"github.com/noah-isme/qna-go-api/internal/pipeline"
	"github.com/noah-isme/qna-go-api/internal/repository"
	"github.com/noah-isme/qna-go-api/internal/router"
	"github.com/noah-isme/qna-go-api/internal/service"
	"github.com/noah-isme/qna-go-api/pkg/ai"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := database.NewStore(
		database.PostgresOpener(cfg.DatabaseURL, cfg.DatabaseMaxOpen, cfg.DatabaseMaxIdle),
		database.WithMigration(func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }),
		database.WithLogger(logger),
	)
	if _, err := store.DB(rootCtx); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(rootCtx, cfg.RedisURL)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, identity cache disabled")
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = nats.Connect(cfg.NATSURL, nats.Name(cfg.AppName), nats.MaxReconnects(-1))
		if err != nil {
			logger.Warn().Err(err).Msg("nats unavailable, domain events disabled")
			natsConn = nil
		} else {
			defer natsConn.Drain()
		}
	}

	var resolver identity.Resolver
	if cfg.ClerkSecretKey != "" {
		clerk, err := identity.NewClerkResolver(identity.ClerkConfig{
			BaseURL:   cfg.ClerkAPIURL,
			SecretKey: cfg.ClerkSecretKey,
			Logger:    logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create identity resolver")
		}
		resolver = identity.NewCachedResolver(clerk, redisClient, cfg.IdentityCacheTTL, logger)
	} else {
		logger.Warn().Msg("clerk secret key not set, every user renders as anonymous")
	}

	registry := ai.NewRegistry(cfg.AIDefaultProvider, buildProviders(rootCtx, cfg, logger), ai.WithRegistryLogger(logger))

	validate := dto.NewValidator()

	questionRepo := repository.NewQuestionRepository(store)
	answerRepo := repository.NewAnswerRepository(store)
	commentRepo := repository.NewCommentRepository(store)
	likeRepo := repository.NewLikeRepository(store)
	saveRepo := repository.NewSaveRepository(store)
	subscriptionRepo := repository.NewSubscriptionRepository(store)
	chatRepo := repository.NewChatRepository(store)
	testRepo := repository.NewTestRepository(store)

	events := service.NewEventPublisher(natsConn, cfg.EventsPrefix, logger)
	enricher := service.NewEnricher(resolver, likeRepo, commentRepo, logger)

	questionService := service.NewQuestionService(questionRepo, answerRepo, commentRepo, saveRepo, enricher, logger)
	answerService := service.NewAnswerService(answerRepo, questionRepo, commentRepo, enricher, events, logger)
	commentService := service.NewCommentService(commentRepo, answerRepo, questionRepo, enricher, events, logger)
	likeService := service.NewLikeService(likeRepo, answerRepo, commentRepo, logger)
	saveService := service.NewSaveService(saveRepo, questionRepo, enricher, logger)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, logger)
	chatService := service.NewChatService(chatRepo, registry, logger)
	testService := service.NewTestService(testRepo, registry, validate, logger)

	p := pipeline.New(validate, cfg.RequestTimeout, logger).WithAITimeout(cfg.AIRequestTimeout)

	authMiddleware, err := middleware.Authenticate(middleware.AuthConfig{
		Secret:       cfg.JWTSecret,
		PublicKeyPEM: cfg.JWTPublicKey,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure authentication")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		ErrorHandler: pipeline.ErrorHandler(logger),
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		QuestionHandler:     handler.NewQuestionHandler(questionService, p),
		AnswerHandler:       handler.NewAnswerHandler(answerService, p),
		CommentHandler:      handler.NewCommentHandler(commentService, p),
		LikeHandler:         handler.NewLikeHandler(likeService, p),
		SaveHandler:         handler.NewSaveHandler(saveService, p),
		SubscriptionHandler: handler.NewSubscriptionHandler(subscriptionService, p),
		ChatHandler:         handler.NewChatHandler(chatService, p),
		TestHandler:         handler.NewTestHandler(testService, p),
		AuthMiddleware:      authMiddleware,
		Database:            store,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-rootCtx.Done()
	shutdown(app, store, logger)
}

func buildProviders(ctx context.Context, cfg config.Config, logger zerolog.Logger) []ai.Provider {
	var providers []ai.Provider

	if cfg.OpenAIAPIKey != "" {
		provider, err := ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("openai provider disabled")
		} else {
			providers = append(providers, provider)
		}
	}

	if cfg.GeminiAPIKey != "" {
		provider, err := ai.NewGeminiProvider(ctx, ai.GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			BaseURL: cfg.GeminiBaseURL,
			Model:   cfg.GeminiModel,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("gemini provider disabled")
		} else {
			providers = append(providers, provider)
		}
	}

	if cfg.AnthropicAPIKey != "" {
		provider, err := ai.NewAnthropicProvider(ai.AnthropicConfig{
			APIKey:  cfg.AnthropicAPIKey,
			BaseURL: cfg.AnthropicBaseURL,
			Model:   cfg.AnthropicModel,
			Logger:  logger,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic provider disabled")
		} else {
			providers = append(providers, provider)
		}
	}

	if len(providers) == 0 {
		logger.Warn().Msg("no AI provider configured, chat and tests will answer 400")
	}
	return providers
}

func shutdown(app *fiber.App, store *database.Store, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := store.Close(); err != nil {
		logger.Error().Err(err).Msg("closing database failed")
	}

	logger.Info().Msg("server stopped")
}
