package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rentme-app/internal/app/commands"
	swaphandlers "rentme-app/internal/app/handlers/swaps"
	"rentme-app/internal/app/messaging"
	"rentme-app/internal/app/middleware"
	appoutbox "rentme-app/internal/app/outbox"
	"rentme-app/internal/app/persist"
	"rentme-app/internal/app/queries"
	"rentme-app/internal/app/session"
	swapstore "rentme-app/internal/app/swaps"
	"rentme-app/internal/infra/broker/kafka"
	"rentme-app/internal/infra/config"
	mongoclient "rentme-app/internal/infra/db/mongo"
	ginserver "rentme-app/internal/infra/http/gin"
	infraoutbox "rentme-app/internal/infra/outbox"
	"rentme-app/internal/infra/realtime/ws"
	"rentme-app/internal/infra/storage/memory"
	mongostorage "rentme-app/internal/infra/storage/mongo"
	s3storage "rentme-app/internal/infra/storage/s3"
	"rentme-app/internal/infra/storage/sqlite"
)

// memoryOutboxLimit bounds undelivered swap events kept when no broker is configured.
const memoryOutboxLimit = 1000

type application struct {
	cfg      config.Config
	logger   *slog.Logger
	sessions *session.Store
	swaps    *swapstore.Store
	chats    *messaging.Store
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	ready    func(ctx context.Context) error
	closers  []func(ctx context.Context) error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{cfg: cfg, logger: logger, ready: func(context.Context) error { return nil }}
	ok := false
	defer func() {
		if !ok {
			app.close()
		}
	}()

	storage, mongoClient, err := app.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	box, store := app.openOutbox(ctx, mongoClient)

	var sessionOpts []session.Option
	if cfg.LogoutKeepsOnboarding {
		sessionOpts = append(sessionOpts, session.WithOnboardingKeptOnLogout())
	}
	if app.sessions, err = session.NewStore(storage, logger, sessionOpts...); err != nil {
		return nil, err
	}

	swapOpts := []swapstore.Option{swapstore.WithOutbox(box, appoutbox.JSONEventEncoder{})}
	if cfg.SwapStrictTransitions {
		swapOpts = append(swapOpts, swapstore.WithStrictTransitions())
	}
	if app.swaps, err = swapstore.NewStore(storage, logger, swapOpts...); err != nil {
		return nil, err
	}

	connector, err := ws.NewConnector(ws.Config{URL: cfg.SocketURL, Backoff: cfg.RetryBackoff, Logger: logger})
	if err != nil {
		return nil, err
	}
	if app.chats, err = messaging.NewStore(storage, connector, logger); err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func(context.Context) error {
		app.chats.DisconnectSocket()
		return nil
	})

	if cfg.OutboxEnabled() {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, func(context.Context) error { return producer.Close() })
		app.worker = &infraoutbox.Worker{
			Store:       store,
			Producer:    producer,
			Logger:      logger.With("component", "outbox"),
			Interval:    cfg.OutboxPollInterval,
			TopicPrefix: cfg.KafkaTopicPrefix,
			Backoff:     cfg.RetryBackoff,
		}
	}

	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	swaphandlers.Register(cmdBus, queryBus, app.swaps)
	logger.Debug("command bus ready", "commands", cmdBus.Keys())

	app.handlers = ginserver.Handlers{
		Session: ginserver.SessionHandler{Store: app.sessions},
		Swaps: ginserver.SwapHandler{
			Commands: middleware.ChainCommands(cmdBus, middleware.Logging(logger), middleware.Validation()),
			Queries:  middleware.ChainQueries(queryBus, middleware.QueryValidation()),
			Logger:   logger,
		},
		Chats:    ginserver.ChatHandler{Store: app.chats, Logger: logger},
		Realtime: ginserver.RealtimeHandler{Messaging: app.chats, Session: app.sessions, Logger: logger},
	}
	ok = true
	return app, nil
}

// openStorage returns the configured key-value backend and, for the mongo driver,
// the database it lives in.
func (a *application) openStorage(ctx context.Context) (persist.Storage, *mongoclient.Client, error) {
	switch a.cfg.StorageDriver {
	case config.StorageMemory:
		return memory.NewKV(), nil, nil
	case config.StorageSQLite:
		kv, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.ready = kv.Ping
		a.closers = append(a.closers, func(context.Context) error { return kv.Close() })
		return kv, nil, nil
	case config.StorageMongo:
		client, err := mongoclient.New(ctx, a.cfg.MongoURI, a.cfg.MongoDB)
		if err != nil {
			return nil, nil, err
		}
		a.ready = client.Ping
		a.closers = append(a.closers, client.Close)
		return mongostorage.NewKV(client.DB, a.cfg.MongoCollection), client, nil
	case config.StorageS3:
		kv, err := s3storage.NewKV(s3storage.Config{
			Endpoint:  a.cfg.S3Endpoint,
			UseSSL:    a.cfg.S3UseSSL,
			AccessKey: a.cfg.S3AccessKey,
			SecretKey: a.cfg.S3SecretKey,
			Bucket:    a.cfg.S3Bucket,
			Prefix:    a.cfg.S3Prefix,
			Region:    a.cfg.S3Region,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		return kv, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", a.cfg.StorageDriver)
	}
}

func (a *application) openOutbox(ctx context.Context, client *mongoclient.Client) (appoutbox.Outbox, infraoutbox.Store) {
	if client != nil && a.cfg.OutboxEnabled() {
		s := infraoutbox.NewMongoStore(ctx, client.DB, "")
		return s, s
	}
	limit := 0
	if !a.cfg.OutboxEnabled() {
		limit = memoryOutboxLimit
	}
	s := infraoutbox.NewMemoryStore(limit)
	return s, s
}

func (a *application) hydrate(ctx context.Context) error {
	if err := a.sessions.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate session: %w", err)
	}
	if err := a.swaps.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate swaps: %w", err)
	}
	if err := a.chats.Hydrate(ctx); err != nil {
		return fmt.Errorf("hydrate chats: %w", err)
	}
	return nil
}

func (a *application) startWorker(ctx context.Context) {
	if a.worker == nil {
		a.logger.Info("outbox worker disabled", "reason", "KAFKA_BROKERS not set")
		return
	}
	go func() {
		if err := a.worker.Run(ctx); err != nil && ctx.Err() == nil {
			a.logger.Error("outbox worker stopped", "error", err)
		}
	}()
}

func (a *application) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown step failed", "error", err)
		}
	}
	a.closers = nil
}
