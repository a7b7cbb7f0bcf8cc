// Package sqlite provides the public API for the SQLite character store.
// This package exposes the factory functions while keeping implementation
// details internal.
package sqlite

import (
	"log/slog"

	"github.com/mesh-intelligence/charsheet/internal/sqlite"
	"github.com/mesh-intelligence/charsheet/pkg/types"
)

// Backend is the SQLite character store. It implements types.Store.
type Backend = sqlite.Backend

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
//
// Example:
//
//	backend := sqlite.NewBackend(nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: "/var/lib/charsheet",
//	})
//	defer backend.Detach()
func NewBackend(logger *slog.Logger) *Backend {
	return sqlite.NewBackend(logger)
}

// Open creates a backend and attaches it to config in one step.
func Open(config types.Config, logger *slog.Logger) (*Backend, error) {
	b := sqlite.NewBackend(logger)
	if err := b.Attach(config); err != nil {
		return nil, err
	}
	return b, nil
}
