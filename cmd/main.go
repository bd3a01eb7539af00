package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"skymarshal/internal/adapters/ai"
	"skymarshal/internal/adapters/clickhouse"
	"skymarshal/internal/adapters/config"
	errnoop "skymarshal/internal/adapters/errors/noop"
	errsentry "skymarshal/internal/adapters/errors/sentry"
	"skymarshal/internal/adapters/kafka"
	"skymarshal/internal/adapters/postgres"
	"skymarshal/internal/adapters/redis"
	"skymarshal/internal/adapters/telegram"
	"skymarshal/internal/agents"
	"skymarshal/internal/api"
	"skymarshal/internal/events"
	repoch "skymarshal/internal/repository/clickhouse"
	repopg "skymarshal/internal/repository/postgres"
	reporedis "skymarshal/internal/repository/redis"
	"skymarshal/internal/tools"
	"skymarshal/pkg/errors"
	"skymarshal/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infow("Starting SkyMarshal", "version", cfg.App.Version, "env", cfg.App.Env)

	// Error tracking
	var tracker errors.Tracker
	if cfg.ErrorTracking.Enabled && cfg.ErrorTracking.SentryDSN != "" {
		tracker, err = errsentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
		if err != nil {
			log.Warnf("Sentry init failed, falling back to noop tracker: %v", err)
			tracker = errnoop.New()
		}
	} else {
		tracker = errnoop.New()
	}
	logger.SetErrorTracker(tracker)
	defer tracker.Flush(context.Background())

	// Backing stores
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Postgres connection failed: %v", err)
	}
	defer pgClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Redis connection failed: %v", err)
	}
	defer redisClient.Close()

	health := api.NewHealthHandler()
	health.Register("postgres", pgClient)
	health.Register("redis", redisClient)

	var decisionArchive *repoch.DecisionRepository
	if cfg.ClickHouse.Host != "" {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("ClickHouse connection failed: %v", err)
		}
		defer chClient.Close()
		health.Register("clickhouse", chClient)
		decisionArchive = repoch.NewDecisionRepository(chClient.Conn())
	}

	// Event pipeline
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers)
		defer producer.Close()
	}
	publisher := events.NewPublisher(producer)

	// Ops alerting
	var notifier *telegram.Notifier
	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.OpsChatIDs)
		if err != nil {
			log.Warnf("Telegram notifier disabled: %v", err)
			notifier = nil
		}
	}

	// Model providers
	providers := ai.NewProviderRegistry()
	if cfg.AI.OpenAIKey != "" {
		_ = providers.Register(ai.NewOpenAIProvider(ai.OpenAIConfig{
			APIKey:         cfg.AI.OpenAIKey,
			BaseURL:        cfg.AI.OpenAIBaseURL,
			Timeout:        cfg.AI.RequestTimeout,
			RequestsPerMin: cfg.AI.RequestsPerMin,
			Burst:          cfg.AI.RequestBurst,
		}))
	}
	if cfg.AI.AnthropicKey != "" {
		_ = providers.Register(ai.NewAnthropicProvider(ai.AnthropicConfig{
			APIKey:         cfg.AI.AnthropicKey,
			Timeout:        cfg.AI.RequestTimeout,
			RequestsPerMin: cfg.AI.RequestsPerMin,
			Burst:          cfg.AI.RequestBurst,
		}))
	}

	provider, err := providers.Get(cfg.AI.DefaultProvider)
	if err != nil {
		log.Fatalf("Default model provider unavailable: %v", err)
	}

	// Tool catalog over the flight-operations store
	flightOps := repopg.NewFlightOpsRepository(pgClient.DB())
	toolRegistry := tools.NewRegistry()
	if err := tools.RegisterFlightOps(toolRegistry, flightOps); err != nil {
		log.Fatalf("Tool registration failed: %v", err)
	}

	// Agent pipeline
	settings := agents.InvokerSettings{
		Model:        cfg.AI.DefaultModel,
		MaxToolTurns: cfg.Agents.MaxToolTurns,
		MaxRetries:   cfg.Agents.MaxRetries,
		MaxTokens:    cfg.Agents.MaxTokens,
		Temperature:  cfg.Agents.Temperature,
	}

	roster, err := agents.NewRegistry(provider, toolRegistry, settings)
	if err != nil {
		log.Fatalf("Agent roster build failed: %v", err)
	}

	scheduler := agents.NewPhaseScheduler(cfg.Agents.AgentTimeout)
	arbitrator := agents.NewArbitrator(provider, settings)
	sessions := reporedis.NewSessionRepository(redisClient.Client(), cfg.Redis.SessionTTL)

	opts := []agents.OrchestratorOption{
		agents.WithSessionStore(sessions),
		agents.WithEventPublisher(publisher),
	}
	if decisionArchive != nil {
		opts = append(opts, agents.WithDecisionArchive(decisionArchive))
	}
	if notifier != nil {
		opts = append(opts, agents.WithEscalationNotifier(notifier))
	}

	orchestrator := agents.NewOrchestrator(
		roster, scheduler, arbitrator,
		cfg.Agents.ArbitrationTimeout,
		opts...,
	)

	server := api.NewServer(cfg.Server.Port, orchestrator, health, api.ServiceInfo{
		Name:    cfg.App.Name,
		Version: cfg.App.Version,
		Env:     cfg.App.Env,
	})

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	case sig := <-sigCh:
		log.Infof("Received signal %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Shutdown error: %v", err)
	}

	log.Info("SkyMarshal stopped")
}
