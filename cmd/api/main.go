package main

import (
	"context"
	"net/http"
	"os"
	"slices"
	"time"

	"launchpad_go_backend/cmd/api/config"
	"launchpad_go_backend/internal/api"
	"launchpad_go_backend/internal/auth"
	"launchpad_go_backend/internal/database"
	"launchpad_go_backend/internal/models"
	"launchpad_go_backend/internal/services"
	"launchpad_go_backend/internal/utils/broker"
	"launchpad_go_backend/internal/wsocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	setupLogger(cfg)

	ctx := context.Background()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	var userCache services.UserCache
	if cfg.Cache.RedisURL != "" {
		redisCache, err := services.NewRedisUserCache(ctx, cfg.Cache.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect user cache")
		}
		defer redisCache.Close()
		userCache = redisCache
	}
	userService := services.NewUserService(db, userCache, cfg.Cache.UserCacheTTL)

	router, closeProviders, err := services.NewChatRouterFromCredentials(ctx, services.NewModelRegistry(), services.ProviderCredentials{
		OpenAIAPIKey:     cfg.AI.OpenAIAPIKey,
		OpenAIBaseURL:    cfg.AI.OpenAIBaseURL,
		AnthropicAPIKey:  cfg.AI.AnthropicAPIKey,
		AnthropicBaseURL: cfg.AI.AnthropicBaseURL,
		GoogleAPIKey:     cfg.AI.GoogleAPIKey,
	}, cfg.AI.ProviderTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create AI providers")
	}
	defer closeProviders()

	available, defaultModel := router.AvailableModels(), router.DefaultModel()
	if len(available) == 0 {
		log.Warn().Msg("No AI provider credentials configured, chat requests will fail")
	}
	log.Info().Int("models", len(available)).Str("default", defaultModel).Msg("Model router ready")

	events := broker.NewBroker()
	chatService := services.NewChatService(services.NewChatServiceDB(db), router, events)

	stripeService := services.NewStripeService(services.StripeOptions{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		FrontendURL:   cfg.FrontendURL,
		PriceIDs: map[models.PlanTier]string{
			models.PlanStarter:    cfg.Stripe.StarterPriceID,
			models.PlanPro:        cfg.Stripe.ProPriceID,
			models.PlanEnterprise: cfg.Stripe.EnterprisePriceID,
		},
	}, userService)

	// left nil so the middleware falls through to test mode or rejects
	var verifier auth.TokenVerifier
	if cfg.Auth.Auth0Domain != "" {
		verifier = auth.NewAuth0Verifier(cfg.Auth.Auth0Domain, cfg.Auth.Auth0Audience)
	}
	authMiddleware := auth.AuthMiddleware(verifier, userService, cfg.Auth.TestMode)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cfg.AllowedOrigins, origin)
		},
	}
	wsHandler := wsocket.NewHandler(chatService, events, upgrader)

	auth.SetupRoutes(r, authMiddleware, userService)
	api.SetupRoutes(r, authMiddleware, chatService, stripeService, wsHandler)

	log.Info().Str("port", cfg.Port).Str("environment", cfg.Environment).Msg("Server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
	zerolog.DefaultContextLogger = &log.Logger
}
