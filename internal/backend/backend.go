// Package backend selects and constructs the storage backend at startup.
package backend

import (
	"fmt"
	"log/slog"

	"ahorramas/internal/store"
	"ahorramas/internal/store/document"
	"ahorramas/internal/store/sqlite"
)

// Type identifies a storage backend.
type Type string

const (
	SQLiteBackend   Type = "sqlite"
	DocumentBackend Type = "document"
	MemoryBackend   Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, DocumentBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Config holds what each backend needs to start.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Document specific
	DataDirectory string
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case DocumentBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for document backend")
		}
	case MemoryBackend:
		// Nothing to validate.
	}

	return nil
}

// Result bundles the opened store with its cleanup function.
type Result struct {
	Store   store.Store
	Cleanup func() error
}

// Factory opens stores based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Open builds the store described by config.
func (f *Factory) Open(config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.openSQLite(config)
	case DocumentBackend:
		return f.openDocument(config)
	case MemoryBackend:
		return f.openMemory()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *Factory) openSQLite(config Config) (*Result, error) {
	s, err := sqlite.Open(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &Result{Store: s, Cleanup: s.Close}, nil
}

func (f *Factory) openDocument(config Config) (*Result, error) {
	s, err := document.Open(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document store: %w", err)
	}

	f.logger.Info("Initialized document backend", "data_directory", config.DataDirectory)

	return &Result{Store: s, Cleanup: s.Close}, nil
}

func (f *Factory) openMemory() (*Result, error) {
	s := document.New()

	f.logger.Info("Initialized in-memory backend")

	return &Result{Store: s, Cleanup: s.Close}, nil
}
