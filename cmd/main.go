package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	authservice "github.com/goserg/eventhub/auth/service"
	"github.com/goserg/eventhub/bot/tgbot"
	"github.com/goserg/eventhub/internal/config"
	"github.com/goserg/eventhub/internal/logger"
	"github.com/goserg/eventhub/internal/service"
	"github.com/goserg/eventhub/internal/storage"
	"github.com/goserg/eventhub/internal/storage/mem"
	"github.com/goserg/eventhub/internal/storage/postgres"
	"github.com/goserg/eventhub/internal/storage/sqlite"
	"github.com/goserg/eventhub/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	l := logger.New(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, l, cfg.Server.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			l.WithError(err).Error("close storage")
		}
	}()

	if cfg.Server.SeedFile != "" {
		data, err := os.ReadFile(cfg.Server.SeedFile)
		if err != nil {
			return fmt.Errorf("read seed file: %w", err)
		}
		n, err := service.NewFixtureService(store, store).Import(ctx, data)
		if err != nil {
			return fmt.Errorf("import %s: %w", cfg.Server.SeedFile, err)
		}
		l.WithField("rows", n).Info("seed imported")
	}

	admission := service.NewAdmissionService(store, store)
	rating := service.NewRatingService(store)
	subscriptions := service.NewSubscriptionService(store, store)

	var notifier web.Notifier
	if cfg.Server.TgBotEnabled {
		bot, err := tgbot.New(tgbot.Services{
			Admission:     admission,
			Rating:        rating,
			Subscriptions: subscriptions,
		}, cfg.TgBot, l)
		if err != nil {
			return err
		}
		go bot.Run()
		defer bot.Stop()
		notifier = bot
	}

	server := web.New(l, web.Services{
		Admission:     admission,
		Rating:        rating,
		Subscriptions: subscriptions,
	}, cfg.Server, authservice.New(cfg.Server.Auth), notifier)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		l.Info("shutting down")
		return server.Shutdown()
	}
}

func openStorage(ctx context.Context, l *logrus.Logger, cfg config.Storage) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return mem.New(), nil
	case config.DriverSQLite:
		return sqlite.New(l, cfg.SqliteFile)
	case config.DriverPostgres:
		return postgres.New(ctx, l, cfg.Postgres)
	}
	return nil, errors.New("unknown storage driver " + cfg.Driver)
}
