package blobstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/linkkeeper/internal/config"
	ferrors "git.home.luguber.info/inful/linkkeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/linkkeeper/internal/logfields"
)

var (
	_ Store = (*Memory)(nil)
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*NATSStore)(nil)
)

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	slog.Debug("Opening blob store", logfields.Backend(string(cfg.Backend)))

	switch cfg.Backend {
	case config.StorageFile, "":
		return NewFileStore(cfg.Dir)
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.DSN)
	case config.StorageNATS:
		return NewNATSStore(ctx, cfg.NATSURL, cfg.Bucket)
	case config.StorageMemory:
		return NewMemory(), nil
	default:
		return nil, ferrors.ConfigError("unknown storage backend").
			WithContext("backend", string(cfg.Backend)).Build()
	}
}
