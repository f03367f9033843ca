package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/jarbasai/jarbas/internal/agents"
	"github.com/jarbasai/jarbas/internal/authz"
	"github.com/jarbasai/jarbas/internal/calendar"
	"github.com/jarbasai/jarbas/internal/chat"
	"github.com/jarbasai/jarbas/internal/config"
	"github.com/jarbasai/jarbas/internal/contexts"
	"github.com/jarbasai/jarbas/internal/debounce"
	"github.com/jarbasai/jarbas/internal/fragments"
	"github.com/jarbasai/jarbas/internal/gateway"
	"github.com/jarbasai/jarbas/internal/groups"
	"github.com/jarbasai/jarbas/internal/llm"
	"github.com/jarbasai/jarbas/internal/media"
	"github.com/jarbasai/jarbas/internal/observability"
	"github.com/jarbasai/jarbas/internal/orchestrator"
	"github.com/jarbasai/jarbas/internal/tools"
	"github.com/jarbasai/jarbas/internal/websearch"
)

const shutdownGrace = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	tracer, shutdownTracer, err := observability.NewTracer(ctx, observability.TraceConfig{
		ServiceName: "jarbas",
		Endpoint:    cfg.Tracing.OTLPEndpoint,
		Insecure:    cfg.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	// Fragment buffer: Redis when configured, in-process otherwise.
	var fragmentStore fragments.Store
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("invalid redis url: %w", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unreachable: %w", err)
		}
		fragmentStore = fragments.NewRedisStore(redisClient)
	} else {
		logger.Warn("no redis url configured, fragments buffered in memory only")
		fragmentStore = fragments.NewMemoryStore()
	}

	// Conversation and membership stores: MongoDB when configured.
	var contextStore contexts.Store
	var groupCache groups.Cache
	var mongoClient *mongo.Client
	if cfg.Mongo.URI != "" {
		mongoClient, err = mongo.Connect(mongoopts.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("failed to connect to mongodb: %w", err)
		}
		db := mongoClient.Database(cfg.Mongo.Database)
		contextStore, err = contexts.NewMongoStore(ctx, db)
		if err != nil {
			return err
		}
		groupCache, err = groups.NewMongoCache(ctx, db)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("no mongodb uri configured, conversation state kept in memory only")
		contextStore = contexts.NewMemoryStore()
		groupCache = groups.NewMemoryCache()
	}

	evolution := chat.NewEvolutionClient(chat.EvolutionConfig{
		BaseURL:  cfg.Evolution.BaseURL,
		Instance: cfg.Evolution.Instance,
		APIKey:   cfg.Evolution.APIKey,
	})

	normalizer := media.NewNormalizer(media.NormalizerOptions{
		Downloader:  evolution,
		Transcriber: media.NewWhisperTranscriber(cfg.OpenAI.APIKey),
		Logger:      logger,
	})

	toolRegistry := tools.NewRegistry(metrics)
	searcher := websearch.NewSerperClient(cfg.Serper.APIKey)
	toolRegistry.MustRegister(tools.NewWebSearchTool(searcher), tools.NewBuscarLeadsTool(searcher))

	if cfg.Calendar.CredentialsFile != "" {
		calendarClient, err := calendar.NewGoogleClient(ctx, cfg.Calendar.CredentialsFile, cfg.Calendar.CalendarID)
		if err != nil {
			return fmt.Errorf("failed to init calendar: %w", err)
		}
		toolRegistry.MustRegister(tools.CalendarTools(calendarClient)...)
	} else {
		logger.Warn("no calendar credentials configured, scheduling tools disabled")
	}

	agentRegistry, err := agents.NewRegistry(agents.Catalog())
	if err != nil {
		return err
	}

	llmClient := llm.NewOpenAIClient(cfg.OpenAI.APIKey, metrics)
	runtime := agents.NewRuntime(agents.RuntimeOptions{
		Client:            llmClient,
		Registry:          toolRegistry,
		DefaultModel:      cfg.OpenAI.Model,
		MaxToolIterations: cfg.Turns.MaxToolIterations,
		TurnDeadline:      cfg.Turns.TurnDeadline(),
		Tracer:            tracer,
		Logger:            logger,
	})

	orch := orchestrator.New(orchestrator.Options{
		Router:       llmClient,
		Runtime:      runtime,
		Agents:       agentRegistry,
		Contexts:     contextStore,
		Sender:       evolution,
		RouterModel:  cfg.OpenAI.Model,
		HistoryLimit: cfg.Turns.HistoryLimit,
		Tracer:       tracer,
		Metrics:      metrics,
		Logger:       logger,
	})

	debouncer := debounce.New(debounce.Options{
		Store:              fragmentStore,
		QuietPeriod:        cfg.Turns.QuietPeriod(),
		MaxConcurrentTurns: int64(cfg.Turns.MaxConcurrentTurns),
		OnTurn: func(turnCtx context.Context, userKey, utterance string) {
			if err := orch.HandleTurn(turnCtx, userKey, utterance); err != nil {
				logger.Error("turn failed", "user_key", userKey, "error", err)
			}
		},
		Metrics: metrics,
		Logger:  logger,
	})

	gate := authz.NewGate(groupCache, evolution, cfg.Turns.AuthorizedGroupIDs, cfg.Turns.GroupCacheTTL(), logger)

	server := gateway.New(gateway.Options{
		ListenAddr: cfg.Server.ListenAddr,
		Normalizer: normalizer,
		Authorizer: gate,
		Enqueuer:   debouncer,
		Metrics:    metrics,
		Logger:     logger,
	})

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()
	logger.Info("jarbas started",
		"listen_addr", cfg.Server.ListenAddr,
		"model", cfg.OpenAI.Model,
		"authorized_groups", len(cfg.Turns.AuthorizedGroupIDs))

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	if err := debouncer.Shutdown(shutdownCtx); err != nil {
		logger.Error("debounce shutdown incomplete", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer shutdown failed", "error", err)
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Error("mongodb disconnect failed", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("redis close failed", "error", err)
		}
	}
	logger.Info("shutdown complete")
	return nil
}
