package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/vexeradubbing/applybot/internal/bot"
	"github.com/vexeradubbing/applybot/internal/config"
	"github.com/vexeradubbing/applybot/internal/handler"
	"github.com/vexeradubbing/applybot/internal/kafka"
	"github.com/vexeradubbing/applybot/internal/logger"
	"github.com/vexeradubbing/applybot/internal/metrics"
	"github.com/vexeradubbing/applybot/internal/notifier"
	"github.com/vexeradubbing/applybot/internal/queue"
	"github.com/vexeradubbing/applybot/internal/router"
	"github.com/vexeradubbing/applybot/internal/service"
	"github.com/vexeradubbing/applybot/internal/storage"
	"github.com/vexeradubbing/applybot/pkg/observability"
)

const (
	serviceName    = "applybot"
	serviceVersion = "1.0"
)

func main() {
	l := logger.NewLogger()
	slog.SetDefault(l)

	metrics.Init()

	if err := godotenv.Load(); err != nil {
		l.Info("No .env file loaded", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		l.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	if cfg.Telegram.Token == "" {
		l.Error("TELEGRAM_TOKEN not set")
		os.Exit(1)
	}
	if len(cfg.Telegram.AdminIDs) == 0 {
		l.Error("ADMIN_IDS not set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- OpenTelemetry Tracing Setup ----
	if cfg.OTELCollectorEndpoint != "" {
		tracerShutdown, err := observability.NewTracerProvider(ctx, observability.Config{
			ServiceName: serviceName,
			Version:     serviceVersion,
			Endpoint:    cfg.OTELCollectorEndpoint,
			SampleRatio: cfg.OTELSampleRatio,
		}, l)
		if err != nil {
			l.Error("Failed to initialize OpenTelemetry TracerProvider", slog.Any("err", err))
			os.Exit(1)
		}
		defer tracerShutdown()
	}

	// ---- Storage ----
	var store storage.Storage
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pool, err := storage.NewPostgresPool(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			l.Error("Failed to connect to database", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()

		ps := storage.NewPostgresStorage(pool)
		if err := ps.EnsureSchema(ctx); err != nil {
			l.Error("Schema init failed", slog.Any("error", err))
			os.Exit(1)
		}
		store = ps
	case config.BackendJSON:
		js, err := storage.NewJSONStorage(cfg.Storage.JSONFile)
		if err != nil {
			l.Error("Failed to open JSON database", slog.Any("error", err))
			os.Exit(1)
		}
		store = js
	default:
		store = storage.NewMemoryStorage()
	}

	// ---- Telegram transport ----
	api, err := bot.NewAPI(cfg.Telegram.Token, cfg.Telegram.PollPeriod)
	if err != nil {
		l.Error("Bot init failed", slog.Any("error", err))
		os.Exit(1)
	}
	transport := bot.NewTransport(api)
	fanout := notifier.New(transport, store, 4, l)

	// ---- Kafka event stream (optional) ----
	var wg sync.WaitGroup
	var events kafka.EventProducer
	if len(cfg.Kafka.Brokers) > 0 {
		saramaConfig := sarama.NewConfig()
		saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
		saramaConfig.Producer.Retry.Max = 5
		saramaConfig.Producer.Return.Successes = true
		saramaConfig.ClientID = serviceName + "-producer"

		asyncProducer, err := sarama.NewAsyncProducer(cfg.Kafka.Brokers, saramaConfig)
		if err != nil {
			l.Error("Failed to create sarama producer", slog.Any("error", err))
			os.Exit(1)
		}
		producer := kafka.NewProducer(asyncProducer, cfg.Kafka.Topic, l, &wg)
		producer.Start(ctx)
		defer producer.Close()
		events = producer
	}

	// ---- Service and intake pipeline ----
	appSvc := service.NewApplicationService(store, fanout, events, cfg.Telegram.AdminIDs, l)
	healthSvc := service.NewHealthService(store, l)

	intakeQueue := queue.New(cfg.Intake.QueueSize, appSvc.ProcessIntake, l)
	go intakeQueue.Start(ctx)

	surface := bot.New(api, bot.Config{Marker: cfg.Intake.Marker},
		appSvc, fanout, intakeQueue, l)
	go surface.Start()

	// ---- HTTP intake server ----
	appHandler := handler.NewApplicationHandler(appSvc, intakeQueue, l)
	healthHandler := handler.NewHealthHandler(healthSvc, l)

	server := &http.Server{
		Addr:    ":" + cfg.HTTP.Port,
		Handler: router.NewRouter(appHandler, healthHandler),
	}

	go func() {
		l.Info("Server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("Failed to start server", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down...")
	surface.Stop()
	cancel()

	ctxTimeout, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := server.Shutdown(ctxTimeout); err != nil {
		l.Error("Shutdown failed", slog.Any("error", err))
	} else {
		l.Info("Server exited cleanly")
	}
	wg.Wait()
}
