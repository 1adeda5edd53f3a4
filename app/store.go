package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/JhonneBoy/sistema-estoque-vendas/auth"
	"github.com/JhonneBoy/sistema-estoque-vendas/inventory"
	memstore "github.com/JhonneBoy/sistema-estoque-vendas/inventory/store"
	"github.com/JhonneBoy/sistema-estoque-vendas/store/filestore"
	"github.com/JhonneBoy/sistema-estoque-vendas/store/sqlstore"
)

// Storage is the opened backend. Credentials is nil for backends without
// a credentials section.
type Storage struct {
	Store       inventory.Store
	Credentials auth.CredentialSource
	closer      io.Closer
}

// Close releases the backend.
func (s *Storage) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStore opens the backend selected by cfg.StoreBackend.
func OpenStore(cfg *Config, logger *slog.Logger) (*Storage, error) {
	switch cfg.StoreBackend {
	case BackendSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		s, err := sqlstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return &Storage{Store: s, Credentials: s, closer: s}, nil
	case BackendPostgres:
		s, err := sqlstore.OpenPostgres(cfg.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return &Storage{Store: s, Credentials: s, closer: s}, nil
	case BackendFile:
		s := filestore.New(cfg.DataFile, filestore.Options{
			BackupDir:   cfg.BackupDir,
			KeepBackups: cfg.KeepBackups,
			Logger:      logger,
		})
		return &Storage{Store: s, Credentials: s}, nil
	case BackendMemory:
		return &Storage{Store: memstore.NewMemory()}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
