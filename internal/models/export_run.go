package models

import (
	"fmt"
	"time"
)

// ExportRun records one bulk export so past runs can be listed.
type ExportRun struct {
	id        string
	outputDir string
	format    string
	total     int
	succeeded int
	failed    int
	createdAt time.Time
}

// NewExportRun creates an unsaved [ExportRun].
func NewExportRun(outputDir, format string, total, succeeded, failed int) *ExportRun {
	return &ExportRun{
		outputDir: outputDir,
		format:    format,
		total:     total,
		succeeded: succeeded,
		failed:    failed,
		createdAt: time.Now().UTC(),
	}
}

func (r *ExportRun) ID() string           { return r.id }
func (r *ExportRun) SetID(id string)      { r.id = id }
func (r *ExportRun) OutputDir() string    { return r.outputDir }
func (r *ExportRun) Format() string       { return r.format }
func (r *ExportRun) Total() int           { return r.total }
func (r *ExportRun) Succeeded() int       { return r.succeeded }
func (r *ExportRun) Failed() int          { return r.failed }
func (r *ExportRun) CreatedAt() time.Time { return r.createdAt }

// SetCreatedAt is used when loading a row.
func (r *ExportRun) SetCreatedAt(t time.Time) { r.createdAt = t }

// Validate checks counts and required fields.
func (r *ExportRun) Validate() error {
	switch {
	case r.outputDir == "":
		return fmt.Errorf("output dir is required")
	case r.format == "":
		return fmt.Errorf("format is required")
	case r.succeeded < 0 || r.failed < 0 || r.succeeded+r.failed > r.total:
		return fmt.Errorf("inconsistent counts: %d succeeded, %d failed of %d", r.succeeded, r.failed, r.total)
	}
	return nil
}
