// Package backend builds the ledger store and event publisher selected by
// configuration.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"fluxo/internal/amqp"
	"fluxo/internal/config"
	"fluxo/internal/ledger"
	"fluxo/internal/ledger/memory"
	"fluxo/internal/services"
	"fluxo/internal/storage"
)

// BackendType represents the type of store backing the ledger.
type BackendType string

const (
	MemoryBackend   BackendType = config.BackendMemory
	SQLiteBackend   BackendType = config.BackendSQLite
	PostgresBackend BackendType = config.BackendPostgres
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, PostgresBackend:
		return true
	default:
		return false
	}
}

// Config holds what the factory needs from the application config.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	bt := BackendType(appConfig.DataBackend)
	if !bt.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}
	return Config{
		Type:         bt,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		DatabaseURL:  appConfig.DatabaseURL,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,
	}, nil
}

// CleanupFunc releases the resources of a created backend.
type CleanupFunc func() error

// Result contains the store, the publisher services announce changes on,
// and a cleanup releasing both.
type Result struct {
	Store     ledger.Store
	Publisher services.EventPublisher
	Cleanup   CleanupFunc
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create opens the configured store. When an AMQP URL is configured a
// publisher is attached; a broker that cannot be reached leaves the
// publisher nil and the ledger usable.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	store, err := f.CreateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	res := &Result{Store: store, Cleanup: store.Close}
	if cfg.AMQPURL == "" {
		return res, nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return res, nil
	}
	f.logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	res.Publisher = client
	res.Cleanup = func() error {
		clientErr := client.Close()
		if err := store.Close(); err != nil {
			return err
		}
		return clientErr
	}
	return res, nil
}

// CreateStore opens the configured store without any event publisher.
func (f *Factory) CreateStore(_ context.Context, cfg Config) (ledger.Store, error) {
	switch cfg.Type {
	case MemoryBackend:
		f.logger.Info("Initialized memory backend")
		return memory.New(), nil
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := storage.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL repository: %w", err)
		}
		f.logger.Info("Initialized PostgreSQL backend")
		return repo, nil
	default:
		return nil, fmt.Errorf("invalid backend type: %s", cfg.Type)
	}
}
