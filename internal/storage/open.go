package storage

import (
	"fmt"

	"github.com/hyperjump/wadai/internal/config"
)

// Open returns the store selected by cfg.Backend.
func Open(cfg config.StorageConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStorage(cfg.DatabasePath)
	case "jsonserver":
		return NewJSONServerStorage(cfg.JSONServerURL, nil)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
