package backend

import (
	"fmt"

	"financeflow/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	storeType := StoreType(appConfig.Store)
	if !storeType.IsValid() {
		return Config{}, fmt.Errorf("invalid store type in config: %s", appConfig.Store)
	}

	return Config{
		Type:   storeType,
		DBPath: appConfig.DBPath,

		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid store type: %s", c.Type)
	}

	if c.Type == SQLiteStore && c.DBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite store")
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	if c.SheetsEnabled() && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		return fmt.Errorf("either GoogleServiceAccountJSON or GoogleServiceAccountFile must be provided for sheets export")
	}

	return nil
}

// SheetsEnabled reports whether exports go to a real spreadsheet.
func (c Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// GetStoreTypes returns all valid store types
func GetStoreTypes() []StoreType {
	return []StoreType{SQLiteStore, MemoryStore}
}
