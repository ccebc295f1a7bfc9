package backend

import (
	"context"
	"fmt"

	"financeflow/internal/amqp"
	"financeflow/internal/log"
	"financeflow/internal/sheets"
	gsheet "financeflow/internal/sheets/google"
	"financeflow/internal/sheets/memory"
	"financeflow/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// OpenStore implements Factory.OpenStore
func (f *DefaultFactory) OpenStore(config Config) (storage.Repository, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteStore:
		repo, err := storage.NewSQLiteRepository(config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.Info("Initialized SQLite store", "db_path", config.DBPath)
		return repo, nil
	case MemoryStore:
		f.logger.Info("Initialized memory store")
		return storage.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", config.Type)
	}
}

// OpenPublisher implements Factory.OpenPublisher
func (f *DefaultFactory) OpenPublisher(config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		f.logger.Info("AMQP not configured, budget alerts disabled")
		return nil, nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
	}
	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}

// OpenExporter implements Factory.OpenExporter
func (f *DefaultFactory) OpenExporter(ctx context.Context, config Config) (sheets.Exporter, error) {
	if !config.SheetsEnabled() {
		f.logger.Info("No spreadsheet configured, exports are a dry run")
		return memory.New(), nil
	}

	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		SheetName:       config.GoogleSheetName,
		CredentialsJSON: config.GoogleServiceAccountJSON,
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets exporter", "sheet", config.GoogleSheetName)
	return client, nil
}
