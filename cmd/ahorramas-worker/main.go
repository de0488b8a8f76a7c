package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"ahorramas/internal/amqp"
	"ahorramas/internal/backend"
	"ahorramas/internal/config"
	"ahorramas/internal/events"
	applog "ahorramas/internal/log"
	"ahorramas/internal/services"
	"ahorramas/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := applog.Setup("worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger).Open(backend.Config{
		Type:          backend.Type(cfg.DataBackend),
		SQLiteDBPath:  cfg.SQLiteDBPath,
		DataDirectory: cfg.DocumentDataDir,
	})
	if err != nil {
		logger.Error("Failed to open storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Storage cleanup failed", "error", err)
		}
	}()

	aggregator := services.NewBudgetAggregator(result.Store)
	refresher := worker.NewRefresher(result.Store, aggregator, cfg.RefreshInterval)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One sweep up front so a freshly started worker converges the data
	// before the first tick.
	if err := refresher.Sweep(ctx); err != nil {
		logger.Error("Initial sweep failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := refresher.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		refresher.Stop()
		return nil
	})

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		g.Go(func() error {
			return client.ConsumeChanges(ctx, func(c events.Change) error {
				return refresher.HandleChange(ctx, c)
			})
		})
		logger.Info("Consuming change messages",
			"exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP not configured, running on timer only",
			"interval", cfg.RefreshInterval)
	}

	logger.Info("Worker started", "backend", cfg.DataBackend)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped")
}
