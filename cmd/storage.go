package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/setlist/internal/repositories"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/storage"
)

// openStorage returns the session backend named by session.storage.
func (r *Runner) openStorage(ctx context.Context) (storage.KV, error) {
	if r.storage != nil {
		return r.storage, nil
	}

	cfg := r.config
	switch cfg.Session.Storage {
	case "memory":
		return storage.NewMemoryStore(), nil
	case "file":
		return storage.NewFileStore(cfg.Session.Dir)
	case "sqlite":
		db, err := r.database()
		if err != nil {
			return nil, err
		}
		return repositories.NewKVRepository(db), nil
	case "redis":
		store, err := storage.DialRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
		if err != nil {
			return nil, err
		}
		r.closers = append(r.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unknown session.storage %q", shared.ErrInvalidConfig, cfg.Session.Storage)
	}
}

// database opens and migrates the local database once per run.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	r.closers = append(r.closers, db.Close)
	return db, nil
}

func (r *Runner) exportRuns() (*repositories.ExportRunRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewExportRunRepository(db), nil
}
