// Package backend wires the configured storage, alert and export
// implementations for the client binaries.
package backend

import (
	"context"

	"financeflow/internal/amqp"
	"financeflow/internal/sheets"
	"financeflow/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Factory creates the client-side infrastructure from configuration.
type Factory interface {
	// OpenStore opens the credential and snapshot store.
	OpenStore(config Config) (storage.Repository, error)

	// OpenPublisher returns the alert publisher, or nil when alerts are
	// not configured.
	OpenPublisher(config Config) (*amqp.Client, error)

	// OpenExporter returns the spreadsheet exporter. Without a spreadsheet
	// it returns an in-memory exporter, which makes exports a dry run.
	OpenExporter(ctx context.Context, config Config) (sheets.Exporter, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Store type
	Type StoreType

	// SQLite specific
	DBPath string

	// AMQP alerts
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// StoreType represents the type of client store
type StoreType string

const (
	SQLiteStore StoreType = "sqlite"
	MemoryStore StoreType = "memory"
)

// String implements fmt.Stringer
func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is valid
func (st StoreType) IsValid() bool {
	switch st {
	case SQLiteStore, MemoryStore:
		return true
	default:
		return false
	}
}
