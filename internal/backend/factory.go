package backend

import (
	"context"
	"fmt"

	"bukukas/internal/log"
	"bukukas/internal/sheets"
	gsheet "bukukas/internal/sheets/google"
	"bukukas/internal/sheets/memory"
	"bukukas/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
	// newSheets builds the Google Sheets sink; replaced in tests.
	newSheets func(ctx context.Context, config Config) (sheets.TableWriter, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger:    logger.WithComponent(log.ComponentBackend),
		newSheets: newGoogleSink,
	}
}

func newGoogleSink(ctx context.Context, _ Config) (sheets.TableWriter, error) {
	return gsheet.NewFromEnv(ctx)
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var result *BackendResult
	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.WithComponent(log.ComponentStorage).Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		result = &BackendResult{Store: repo, Ready: repo.Ping, Cleanup: repo.Close}
	case MemoryBackend:
		repo := storage.NewMemoryRepository()
		f.logger.WithComponent(log.ComponentStorage).Info("Initialized memory backend")
		result = &BackendResult{
			Store: repo,
			Ready: func(context.Context) error { return nil },
		}
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	sink, err := f.createSink(ctx, config)
	if err != nil {
		if result.Cleanup != nil {
			result.Cleanup()
		}
		return nil, err
	}
	result.Sink = sink
	return result, nil
}

func (f *DefaultFactory) createSink(ctx context.Context, config Config) (sheets.TableWriter, error) {
	if config.SpreadsheetID == "" {
		f.logger.Info("No spreadsheet configured, exports kept in memory")
		return memory.New(), nil
	}
	sink, err := f.newSheets(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.WithComponent(log.ComponentSheets).Info("Initialized Google Sheets export sink", "sheet_prefix", config.SheetPrefix)
	return sink, nil
}
