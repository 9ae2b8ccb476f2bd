package cmd

import (
	"fmt"
	"os"

	"github.com/pwakit/pwakit/internal/config"
	"github.com/pwakit/pwakit/internal/output"
	"github.com/pwakit/pwakit/internal/storage"
)

// loadConfig resolves and parses the configuration file, falling back to
// defaults when no file exists.
func loadConfig() (*config.Config, error) {
	path := config.Locate(configPath)
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Parse(path)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newWriter builds the output writer for the global --output flag.
func newWriter() (*output.Writer, error) {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return nil, err
	}
	return output.NewWriter(os.Stdout, format), nil
}

// openStore opens the configured key-value backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(cfg.Storage.Path)
	case "sqlite":
		return storage.NewSQLiteStore(cfg.Storage.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
