package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"deskwise.app/triage/common/id"
	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/common/otel"
	"deskwise.app/triage/core/config"
	"deskwise.app/triage/internal/classify"
	"deskwise.app/triage/internal/draft"
	"deskwise.app/triage/internal/http/handler"
	"deskwise.app/triage/internal/http/handler/webhook"
	"deskwise.app/triage/internal/http/middleware"
	httprouter "deskwise.app/triage/internal/http/router"
	"deskwise.app/triage/internal/intent"
	"deskwise.app/triage/internal/knowledge"
	"deskwise.app/triage/internal/pipeline"
	"deskwise.app/triage/internal/queue"
	"deskwise.app/triage/internal/ticketing"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		// Can't use slog yet — OTel failed before logger setup
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	if telemetry != nil {
		slog.InfoContext(ctx, "otel initialized", "endpoint", cfg.OTel.Endpoint)
	} else {
		slog.InfoContext(ctx, "otel disabled (no endpoint configured)")
	}

	slog.InfoContext(ctx, "triage server starting", "env", cfg.Env, "service", cfg.OTel.ServiceName)
	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.Queue.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

	producer := queue.NewRedisProducer(redisClient, cfg.Queue.Stream, slog.Default())
	defer producer.Close()

	index, err := knowledge.NewTypesenseIndex(
		knowledge.TypesenseConfig{
			URL:        cfg.Typesense.URL,
			APIKey:     cfg.Typesense.APIKey,
			Collection: cfg.Typesense.Collection,
		},
		knowledge.EmbedderConfig{
			APIKey:  cfg.OpenAI.APIKey,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   cfg.OpenAI.EmbeddingModel,
		},
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create knowledge index", "error", err)
		os.Exit(1)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		slog.ErrorContext(ctx, "failed to ensure knowledge collection", "error", err)
		os.Exit(1)
	}
	slog.InfoContext(ctx, "knowledge index ready", "collection", cfg.Typesense.Collection)

	orchestrator, err := buildOrchestrator(cfg, redisClient, index)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	limiter := middleware.NewRateLimiter(
		cfg.RateLimit.RequestsPerWindow,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
	)
	defer limiter.Stop()

	router := setupRouter(cfg, httprouter.Handlers{
		Ticket:    handler.NewTicketHandler(orchestrator),
		Knowledge: handler.NewKnowledgeHandler(index),
		Webhook:   webhook.NewTicketingWebhookHandler(producer, cfg.Ticketing.WebhookSecret),
	}, limiter)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}

	orchestrator.WaitEffects()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(shutdownCtx, "shutdown complete")
}

func buildOrchestrator(cfg config.Config, redisClient *redis.Client, index knowledge.Index) (*pipeline.Orchestrator, error) {
	classifierClient, err := llm.NewClient(llmConfig(cfg.ClassifierLLM))
	if err != nil {
		return nil, err
	}
	intentClient, err := llm.NewClient(llmConfig(cfg.IntentLLM))
	if err != nil {
		return nil, err
	}
	draftClient, err := llm.NewClient(llmConfig(cfg.DraftLLM))
	if err != nil {
		return nil, err
	}

	tickets, err := ticketing.NewZendeskClient(ticketing.ZendeskConfig{
		BaseURL:  cfg.Ticketing.BaseURL,
		Email:    cfg.Ticketing.Email,
		APIToken: cfg.Ticketing.APIToken,
	})
	if err != nil {
		return nil, err
	}

	deadLetter := queue.NewDeadLetterLog(redisClient, cfg.Queue.DeadLetterStream)

	return pipeline.New(
		classify.New(classifierClient),
		intent.New(intentClient),
		knowledge.NewRetriever(index),
		draft.New(draftClient),
		tickets,
		deadLetter,
		pipeline.Config{
			MinConfidenceForDraft: cfg.Pipeline.MinConfidenceForDraft,
			AutoRespond:           cfg.Pipeline.AutoRespond,
			CategoryFieldID:       cfg.Ticketing.CategoryFieldID,
			BatchConcurrency:      cfg.Pipeline.BatchConcurrency,
		},
	), nil
}

func llmConfig(c config.LLMConfig) llm.Config {
	return llm.Config{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
	}
}

func setupRouter(cfg config.Config, handlers httprouter.Handlers, limiter *middleware.RateLimiter) *gin.Engine {
	router := gin.New()

	// Order matters: OTel creates span → Recovery catches panics → Logger logs with trace context
	if cfg.OTel.Enabled() {
		router.Use(otelgin.Middleware(cfg.OTel.ServiceName))
	}
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())

	httprouter.SetupRoutes(router, handlers, limiter, httprouter.RouterConfig{
		AdminAPIKey: cfg.AdminAPIKey,
	})

	return router
}
