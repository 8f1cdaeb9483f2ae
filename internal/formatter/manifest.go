package formatter

import (
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/setlist/internal/shared"
)

// BandExportResult is the outcome of exporting one band.
type BandExportResult struct {
	BandID   string
	BandName string
	Success  bool
	Files    []string
	Error    error
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalBands        int
	SuccessfulExports int
	FailedExports     int
	Results           []BandExportResult
	OutputDirectory   string
	ManifestPath      string
	StartedAt         time.Time
	FinishedAt        time.Time
}

// ManifestEntry is one band in an [ExportManifest].
type ManifestEntry struct {
	BandID   string   `json:"band_id"`
	BandName string   `json:"band_name"`
	Status   string   `json:"status"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// ExportManifest is the JSON written to export_manifest.json.
type ExportManifest struct {
	Format            string          `json:"format"`
	ExportedAt        time.Time       `json:"exported_at"`
	DurationSeconds   float64         `json:"duration_seconds"`
	TotalBands        int             `json:"total_bands"`
	SuccessfulExports int             `json:"successful_exports"`
	FailedExports     int             `json:"failed_exports"`
	Bands             []ManifestEntry `json:"bands"`
}

// WriteBulkExportManifest writes a JSON summary of result to path.
func WriteBulkExportManifest(result *BulkExportResult, format, path string) error {
	m := ExportManifest{
		Format:            format,
		ExportedAt:        result.FinishedAt,
		TotalBands:        result.TotalBands,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Bands:             make([]ManifestEntry, 0, len(result.Results)),
	}
	if m.ExportedAt.IsZero() {
		m.ExportedAt = time.Now().UTC()
	}
	if !result.StartedAt.IsZero() && !result.FinishedAt.IsZero() {
		m.DurationSeconds = result.FinishedAt.Sub(result.StartedAt).Seconds()
	}

	for _, res := range result.Results {
		entry := ManifestEntry{BandID: res.BandID, BandName: res.BandName, Files: res.Files, Status: "success"}
		if !res.Success {
			entry.Status = "failed"
			if res.Error != nil {
				entry.Error = res.Error.Error()
			}
		}
		m.Bands = append(m.Bands, entry)
	}

	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
