package tasks

import "fmt"

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchBand Phase = iota
	ExportBand
	FetchProfile
	FetchBands
	FetchFeed
)

func (p Phase) String() string {
	switch p {
	case FetchBand:
		return "fetch_band"
	case ExportBand:
		return "export_band"
	case FetchProfile:
		return "fetch_profile"
	case FetchBands:
		return "fetch_bands"
	case FetchFeed:
		return "fetch_feed"
	default:
		return ""
	}
}

func startingExportUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBand,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Exporting %d band(s)...", total),
	}
}

func fetchBandUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchBand,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching band %s...", step, total, id),
	}
}

func snapshotUpdate(op snapshotOperation, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   op.phase,
		Step:    step,
		Total:   total,
		Message: op.message,
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportBand,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportBand,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
