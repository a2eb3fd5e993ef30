package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"deskwise.app/triage/common/id"
	"deskwise.app/triage/common/llm"
	"deskwise.app/triage/common/logger"
	"deskwise.app/triage/common/otel"
	"deskwise.app/triage/core/config"
	"deskwise.app/triage/internal/classify"
	"deskwise.app/triage/internal/draft"
	"deskwise.app/triage/internal/intent"
	"deskwise.app/triage/internal/knowledge"
	"deskwise.app/triage/internal/pipeline"
	"deskwise.app/triage/internal/queue"
	"deskwise.app/triage/internal/ticketing"
	"deskwise.app/triage/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger uses OTel provider in production)
	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Setup(cfg)

	slog.InfoContext(ctx, "triage worker starting",
		"env", cfg.Env,
		"consumer_group", cfg.Queue.Group,
		"consumer_name", cfg.Queue.Consumer)

	// Use a different node ID than the server so IDs never collide
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
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
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Queue.Stream)

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

	tickets, err := ticketing.NewZendeskClient(ticketing.ZendeskConfig{
		BaseURL:  cfg.Ticketing.BaseURL,
		Email:    cfg.Ticketing.Email,
		APIToken: cfg.Ticketing.APIToken,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create ticketing client", "error", err)
		os.Exit(1)
	}

	orchestrator, err := buildOrchestrator(cfg, redisClient, index, tickets)
	if err != nil {
		slog.ErrorContext(ctx, "failed to build pipeline", "error", err)
		os.Exit(1)
	}

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Queue.Stream,
		Group:        cfg.Queue.Group,
		Consumer:     cfg.Queue.Consumer,
		DLQStream:    cfg.Queue.DLQStream,
		BatchSize:    1, // Process one ticket at a time
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Queue.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}

	w := worker.New(consumer, tickets, orchestrator, worker.Config{
		MaxAttempts: cfg.Queue.MaxAttempts,
	})

	reclaimer := worker.NewRedisReclaimer(redisClient, worker.RedisReclaimerConfig{
		Stream:    cfg.Queue.Stream,
		Group:     cfg.Queue.Group,
		Consumer:  cfg.Queue.Consumer + "-reclaimer",
		MinIdle:   5 * time.Minute,
		Interval:  1 * time.Minute,
		BatchSize: 10,
	}, consumer, w.ProcessMessage)

	errCh := make(chan error, 2)
	go func() {
		errCh <- w.Run(ctx)
	}()
	go func() {
		reclaimer.Run(ctx)
		errCh <- nil
	}()

	slog.InfoContext(ctx, "worker initialized and running")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop reclaimer first (quick)
	reclaimer.Stop()

	// Stop worker (may be processing; waits for in-flight side effects)
	w.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

func buildOrchestrator(cfg config.Config, redisClient *redis.Client, index knowledge.Index, tickets ticketing.Client) (*pipeline.Orchestrator, error) {
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
