package backend

import (
	"fmt"

	"saralfin/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:         backendType,
		DataFile:     appConfig.DataFile,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		PostgresURL:  appConfig.PostgresURL,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypes())
	}

	switch c.Type {
	case FileBackend:
		if c.DataFile == "" {
			return fmt.Errorf("data file path is required for file backend")
		}
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres backend")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, FileBackend, SQLiteBackend, PostgresBackend}
}
