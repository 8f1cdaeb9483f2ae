package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

var _ models.Repository[*models.ExportRun] = (*ExportRunRepository)(nil)

// ExportRunRepository implements [models.Repository] for [models.ExportRun] history.
type ExportRunRepository struct {
	db *sql.DB
}

// NewExportRunRepository creates a new [ExportRunRepository] with the given database connection
func NewExportRunRepository(db *sql.DB) *ExportRunRepository {
	return &ExportRunRepository{db: db}
}

// Create validates run, assigns an ID and inserts it.
func (r *ExportRunRepository) Create(run *models.ExportRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()
	query := `
		INSERT INTO export_runs (id, output_dir, format, total, succeeded, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, id, run.OutputDir(), run.Format(), run.Total(), run.Succeeded(), run.Failed(), run.CreatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert export run: %w", err)
	}

	run.SetID(id)
	return nil
}

// Get retrieves a run by ID.
func (r *ExportRunRepository) Get(id string) (*models.ExportRun, error) {
	query := `
		SELECT id, output_dir, format, total, succeeded, failed, created_at
		FROM export_runs WHERE id = ?
	`
	run, err := scanExportRun(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("export run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query export run: %w", err)
	}
	return run, nil
}

// Delete removes a run by ID.
func (r *ExportRunRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM export_runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete export run: %w", err)
	}
	return requireAffected(result, fmt.Errorf("export run not found: %s", id))
}

// List returns runs newest first. Supported criteria: "format" (string) and "limit" (int).
func (r *ExportRunRepository) List(criteria map[string]any) ([]*models.ExportRun, error) {
	query := `
		SELECT id, output_dir, format, total, succeeded, failed, created_at
		FROM export_runs WHERE 1 = 1
	`
	args := []any{}

	if format, ok := criteria["format"].(string); ok && format != "" {
		query += " AND format = ?"
		args = append(args, format)
	}

	query += " ORDER BY created_at DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExportRun(row rowScanner) (*models.ExportRun, error) {
	var (
		id, outputDir, format    string
		total, succeeded, failed int
		createdAt                time.Time
	)
	if err := row.Scan(&id, &outputDir, &format, &total, &succeeded, &failed, &createdAt); err != nil {
		return nil, err
	}

	run := models.NewExportRun(outputDir, format, total, succeeded, failed)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	return run, nil
}
