package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kakeibo/internal/amqp"
	"kakeibo/internal/storage"
	"kakeibo/internal/storage/file"
	"kakeibo/internal/storage/memory"
	"kakeibo/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store storage.Backend
		err   error
	)
	switch config.Type {
	case SQLiteBackend:
		store, err = sqlite.NewRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case FileBackend:
		store, err = file.New(config.DataFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file backend: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized file backend", "path", config.DataFilePath)
	case MemoryBackend:
		if config.KeywordsDir != "" {
			store = memory.NewFromFiles(config.KeywordsDir)
		} else {
			store = memory.New(nil)
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "keywords_dir", config.KeywordsDir)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	// The publisher is optional; without it commits simply are not announced.
	var publisher *amqp.Client
	if config.AMQPURL != "" {
		publisher, err = amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without notifications", "error", err)
			publisher = nil
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	return &BackendResult{
		Backend:   store,
		Publisher: publisher,
		Cleanup: func() error {
			var errs []error
			if publisher != nil {
				errs = append(errs, publisher.Close())
			}
			errs = append(errs, store.Close())
			return errors.Join(errs...)
		},
	}, nil
}
