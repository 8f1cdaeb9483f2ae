package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Get Missing", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		_, err := repo.Get(ctx, "auth_tokens")
		if !errors.Is(err, shared.ErrStorageNotFound) {
			t.Errorf("expected ErrStorageNotFound, got %v", err)
		}
	})

	t.Run("Set And Get", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set(ctx, "auth_tokens", []byte(`{"accessToken":"a"}`)); err != nil {
			t.Fatalf("failed to set: %v", err)
		}

		got, err := repo.Get(ctx, "auth_tokens")
		if err != nil {
			t.Fatalf("failed to get: %v", err)
		}
		if string(got) != `{"accessToken":"a"}` {
			t.Errorf("expected stored value, got %s", got)
		}
	})

	t.Run("Set Overwrites", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		for _, v := range []string{"first", "second"} {
			if err := repo.Set(ctx, "k", []byte(v)); err != nil {
				t.Fatalf("failed to set %s: %v", v, err)
			}
		}

		got, _ := repo.Get(ctx, "k")
		if string(got) != "second" {
			t.Errorf("expected second, got %s", got)
		}

		keys, err := repo.Keys(ctx)
		if err != nil {
			t.Fatalf("failed to list keys: %v", err)
		}
		if len(keys) != 1 {
			t.Errorf("expected 1 key after overwrite, got %v", keys)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewKVRepository(setupTestDB(t))

		if err := repo.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(ctx, "k"); err != nil {
			t.Errorf("second delete should be a no-op, got %v", err)
		}

		if _, err := repo.Get(ctx, "k"); !errors.Is(err, shared.ErrStorageNotFound) {
			t.Errorf("expected ErrStorageNotFound after delete, got %v", err)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewKVRepository(db)
		db.Close()

		if _, err := repo.Get(ctx, "k"); err == nil || errors.Is(err, shared.ErrStorageNotFound) {
			t.Errorf("expected query error, got %v", err)
		}
		if err := repo.Set(ctx, "k", []byte("v")); err == nil {
			t.Error("expected error on closed database")
		}
	})
}

func TestExportRunRepository(t *testing.T) {
	t.Run("Create And Get", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := models.NewExportRun("./exports", "csv", 3, 2, 1)

		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}
		if run.ID() == "" {
			t.Fatal("run ID should be set after creation")
		}

		got, err := repo.Get(run.ID())
		if err != nil {
			t.Fatalf("failed to get run: %v", err)
		}
		if got.Format() != "csv" || got.Total() != 3 || got.Succeeded() != 2 || got.Failed() != 1 {
			t.Errorf("unexpected run: %+v", got)
		}
	})

	t.Run("Create ValidationError", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))

		if err := repo.Create(models.NewExportRun("", "csv", 1, 1, 0)); err == nil {
			t.Fatal("expected validation error for empty output dir")
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))

		if _, err := repo.Get("missing"); err == nil {
			t.Error("expected error for missing run")
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

		for i, format := range []string{"json", "csv", "json"} {
			run := models.NewExportRun("./exports", format, 1, 1, 0)
			run.SetCreatedAt(base.Add(time.Duration(i) * time.Hour))
			if err := repo.Create(run); err != nil {
				t.Fatalf("failed to create run: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(all))
		}
		if !all[0].CreatedAt().After(all[2].CreatedAt()) {
			t.Error("expected newest run first")
		}

		jsonRuns, err := repo.List(map[string]any{"format": "json"})
		if err != nil {
			t.Fatalf("failed to list by format: %v", err)
		}
		if len(jsonRuns) != 2 {
			t.Errorf("expected 2 json runs, got %d", len(jsonRuns))
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("failed to list with limit: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 run, got %d", len(limited))
		}
	})

	t.Run("Delete", func(t *testing.T) {
		repo := NewExportRunRepository(setupTestDB(t))
		run := models.NewExportRun("./exports", "txt", 1, 1, 0)
		if err := repo.Create(run); err != nil {
			t.Fatalf("failed to create run: %v", err)
		}

		if err := repo.Delete(run.ID()); err != nil {
			t.Fatalf("failed to delete: %v", err)
		}
		if err := repo.Delete(run.ID()); err == nil {
			t.Error("expected error deleting missing run")
		}
	})
}
