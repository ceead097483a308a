package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hermes/internal/adapters/ai"
	"hermes/internal/adapters/config"
	"hermes/internal/adapters/errors/noop"
	"hermes/internal/adapters/errors/sentry"
	"hermes/internal/adapters/postgres"
	"hermes/internal/adapters/speech"
	"hermes/internal/adapters/storage"
	telegramhandler "hermes/internal/adapters/telegram"
	"hermes/internal/metrics"
	"hermes/internal/providers"
	postgresrepo "hermes/internal/repository/postgres"
	"hermes/internal/services/billing"
	"hermes/internal/sessionstate"
	tgadapter "hermes/pkg/telegram/adapters/tgbotapi"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
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
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage
	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	if err := postgres.EnsureSchema(ctx, pgClient.DB()); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Provider configuration
	registry, err := providers.NewRegistry(cfg.AI.ProvidersFile, log)
	if err != nil {
		log.Fatalf("Failed to load providers: %v", err)
	}

	m := metrics.New()

	// Services
	ledgerRepo := postgresrepo.NewLedgerRepository(pgClient.DB())
	billingSvc := billing.NewService(registry, ledgerRepo, cfg.AI.BillingURL, m)
	aiClient := ai.NewClient(registry, cfg.AI, m, log)

	transcriber, err := speech.NewTranscriber(cfg.Speech)
	if err != nil {
		log.Fatalf("Failed to init transcriber: %v", err)
	}

	imageStore, err := storage.NewImageStore(cfg.AI.GeneratedImagesDir)
	if err != nil {
		log.Fatalf("Failed to init image store: %v", err)
	}

	// Telegram
	bot, err := tgadapter.NewBot(tgadapter.Config{
		Token: cfg.Telegram.BotToken,
		Debug: cfg.App.Env != "production",
	}, log)
	if err != nil {
		log.Fatalf("Failed to create telegram bot: %v", err)
	}

	handler := telegramhandler.NewHandler(telegramhandler.HandlerDeps{
		Bot:          bot,
		AI:           aiClient,
		Billing:      billingSvc,
		Providers:    registry,
		Sessions:     sessionstate.New(cfg.AI.MaxTrackedChats),
		Images:       imageStore,
		Speech:       transcriber,
		Metrics:      m,
		AllowedChats: cfg.Telegram.AllowedChatIDs,
		Log:          log,
	})
	handler.Register()

	if cfg.Metrics.Enabled {
		startMetricsServer(cfg.Metrics.Addr, m, log)
	}

	go func() {
		if err := bot.Start(ctx); err != nil && err != context.Canceled {
			log.Errorf("Bot stopped: %v", err)
			cancel()
		}
	}()

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, errorTracker, log)
}

func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func startMetricsServer(addr string, m *metrics.Metrics, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("Metrics server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Info("Shutting down...")

	cancel()

	if errorTracker != nil {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := errorTracker.Flush(flushCtx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
