package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
	th "github.com/desertthunder/setlist/internal/testing"
)

func sampleExport() *models.BandExport {
	return &models.BandExport{
		Band: models.Band{
			ID:          "band1",
			Name:        "Sunday Team",
			Description: "Main service worship team",
			Members: []models.BandMember{
				{UserID: "u1", Name: "Ana Lima", Role: "vocals", Admin: true},
				{UserID: "u2", Name: "Ben Cole", Role: "keys | pads"},
			},
		},
		Events: []models.Event{
			{
				ID:       "event1",
				BandID:   "band1",
				Title:    "Sunday Service",
				Location: "Main Hall",
				StartsAt: time.Date(2025, 6, 8, 9, 30, 0, 0, time.UTC),
				SongIDs:  []string{"song2", "song1", "song9"},
			},
		},
		Songs: []models.Song{
			{ID: "song1", Title: "Way Maker", Artist: "Sinach", Key: "E", BPM: 68, Tags: []string{"opener", "fast"}},
			{ID: "song2", Title: "Goodness of God", Artist: "Bethel Music", Key: "A"},
		},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Title,Artist,Key,BPM,Tags") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "song1,Way Maker,Sinach,E,68,opener;fast") {
			t.Errorf("CSV missing song1 row, got: %s", output)
		}
		if !strings.Contains(output, "song2,Goodness of God,Bethel Music,A,,") {
			t.Errorf("CSV should leave an unknown BPM empty, got: %s", output)
		}
	})

	t.Run("EventsToCSV", func(t *testing.T) {
		data, err := EventsToCSV(sampleExport())
		if err != nil {
			t.Fatalf("EventsToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "ID,Title,Location,Starts,Ends,Setlist") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "2025-06-08T09:30:00Z,,Goodness of God | Way Maker | song9") {
			t.Errorf("CSV setlist should resolve titles and keep unknown IDs, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(sampleExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		checks := []string{
			"# Sunday Team",
			"**Description**: Main service worship team",
			"**Members**: 2",
			"| Ana Lima | vocals | yes |",
			`| Ben Cole | keys \| pads |  |`,
			"### Sunday Service",
			"- **When**: Sun Jun 8, 2025 09:30",
			"- **Where**: Main Hall",
			"1. Goodness of God\n2. Way Maker\n3. song9",
			"1. Way Maker - Sinach [E]",
		}
		for _, want := range checks {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q", want)
			}
		}
	})

	t.Run("ExportToMarkdown without members or events", func(t *testing.T) {
		export := &models.BandExport{Band: models.Band{ID: "b", Name: "Empty"}}
		data, err := ExportToMarkdown(export)
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if strings.Contains(output, "## Members") || strings.Contains(output, "## Events") {
			t.Errorf("Markdown should omit empty sections, got: %s", output)
		}
		if !strings.Contains(output, "## Songs") {
			t.Errorf("Markdown should always list songs")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Band: Sunday Team") {
			t.Errorf("Text missing band name")
		}
		if !strings.Contains(output, "Events: 1") {
			t.Errorf("Text missing event count")
		}
		if !strings.Contains(output, "    1. Goodness of God") {
			t.Errorf("Text missing setlist")
		}
		if !strings.Contains(output, "  2. Goodness of God - Bethel Music [A]") {
			t.Errorf("Text missing song listing")
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(sampleExport().Band)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, `"id": "band1"`) {
			t.Errorf("JSON missing band ID, got: %s", output)
		}
		if strings.Contains(output, "Way Maker") {
			t.Errorf("metadata should not include songs")
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{`"band"`, `"events"`, `"songs"`, `"song1"`, `"Main Hall"`} {
			if !strings.Contains(output, want) {
				t.Errorf("JSON missing %s", want)
			}
		}
	})
}

func TestChordSheet(t *testing.T) {
	song := models.Song{ID: "song1", Title: "Way Maker", Key: "E", BPM: 68}
	lyrics := &models.Lyrics{
		SongID: "song1",
		Sections: []models.LyricLine{
			{Section: "Verse 1", Text: "You are here, moving in our midst", Chords: []models.Chord{{Position: 0, Name: "E"}, {Position: 13, Name: "B"}}},
			{Section: "Verse 1", Text: "I worship You", Chords: []models.Chord{{Position: 2, Name: "C#m"}, {Position: 3, Name: "A"}}},
			{Section: "Chorus", Text: "Way maker"},
		},
	}

	output := string(ChordSheet(song, lyrics))
	if !strings.Contains(output, "Key: E  BPM: 68") {
		t.Errorf("chord sheet missing key line, got: %s", output)
	}
	if !strings.Contains(output, "[Verse 1]\nE            B\nYou are here") {
		t.Errorf("chords should sit above their offsets, got: %s", output)
	}
	if strings.Count(output, "[Verse 1]") != 1 {
		t.Errorf("section header should print once")
	}
	if !strings.Contains(output, "  C#m A\nI worship You") {
		t.Errorf("overlapping chords should be pushed right, got: %s", output)
	}
	if !strings.Contains(output, "[Chorus]\nWay maker") {
		t.Errorf("chorus without chords missing, got: %s", output)
	}
}

func TestWriters(t *testing.T) {
	export := sampleExport()

	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(export, "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.SongsFile != "band1_songs.csv" {
				t.Errorf("Expected 'band1_songs.csv', got '%s'", result.SongsFile)
			}
			if result.EventsFile != "band1_events.csv" {
				t.Errorf("Expected 'band1_events.csv', got '%s'", result.EventsFile)
			}
			if result.MetadataFile != "band1_metadata.json" {
				t.Errorf("Expected 'band1_metadata.json', got '%s'", result.MetadataFile)
			}
			for _, f := range result.Files() {
				th.AssertFileExists(t, f)
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom")
			result, err := WriteCSVExport(export, base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.SongsFile != base+"_songs.csv" {
				t.Errorf("Expected custom songs path, got '%s'", result.SongsFile)
			}
			th.AssertFileExists(t, result.MetadataFile)
		})

		t.Run("MissingDirectory", func(t *testing.T) {
			_, err := WriteCSVExport(export, filepath.Join(t.TempDir(), "nope", "band1"))
			if err == nil {
				t.Error("expected error writing into a missing directory")
			}
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		t.Run("WithDefaultDirectory", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteMarkdownExport(export, "", nil)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}

			if result.Directory != "band1" {
				t.Errorf("Expected directory 'band1', got '%s'", result.Directory)
			}
			th.AssertDirExists(t, result.Directory)

			content := th.MustReadFile(t, filepath.Join(result.Directory, "README.md"))
			if !strings.Contains(content, "# Sunday Team") {
				t.Errorf("Markdown missing title")
			}
			if len(result.Files) != 1 {
				t.Errorf("Expected only README.md without lyrics, got %v", result.Files)
			}
		})

		t.Run("WithChordSheets", func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "sunday")
			lyrics := map[string]*models.Lyrics{
				"song1": {SongID: "song1", Sections: []models.LyricLine{{Text: "You are here"}}},
			}

			result, err := WriteMarkdownExport(export, dir, lyrics)
			if err != nil {
				t.Fatalf("WriteMarkdownExport failed: %v", err)
			}
			if len(result.Files) != 2 {
				t.Fatalf("Expected README and one chord sheet, got %v", result.Files)
			}

			sheet := filepath.Join(dir, "songs", "song1.md")
			th.AssertFileExists(t, sheet)
			if !strings.Contains(th.MustReadFile(t, sheet), "# Way Maker") {
				t.Errorf("chord sheet missing title")
			}
		})
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteTextExport(export, "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "band1.txt" {
			t.Errorf("Expected 'band1.txt', got '%s'", path)
		}
		th.AssertFileExists(t, path)

		path, err = WriteTextExport(export, "sunday.txt")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "sunday.txt" {
			t.Errorf("Expected 'sunday.txt', got '%s'", path)
		}
	})

	t.Run("WriteJSONExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteJSONExport(export, "")
		if err != nil {
			t.Fatalf("WriteJSONExport failed: %v", err)
		}
		if path != "band1.json" {
			t.Errorf("Expected 'band1.json', got '%s'", path)
		}

		content := th.MustReadFile(t, path)
		if !strings.Contains(content, `"Sunday Team"`) {
			t.Errorf("JSON missing band name")
		}
	})

	t.Run("Write", func(t *testing.T) {
		tests := []struct {
			format string
			files  int
		}{
			{"json", 1},
			{"", 1},
			{"csv", 3},
			{"markdown", 1},
			{"txt", 1},
		}

		for _, tt := range tests {
			files, err := Write(tt.format, export, t.TempDir(), nil)
			if err != nil {
				t.Fatalf("Write(%q) failed: %v", tt.format, err)
			}
			if len(files) != tt.files {
				t.Errorf("Write(%q) created %d files, want %d", tt.format, len(files), tt.files)
			}
			for _, f := range files {
				th.AssertFileExists(t, f)
			}
		}

		_, err := Write("pdf", export, t.TempDir(), nil)
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown format, got %v", err)
		}
	})

	t.Run("IDs cannot leave the output directory", func(t *testing.T) {
		root := t.TempDir()
		out := filepath.Join(root, "export")

		for _, id := range []string{"../escaped", "../../../escaped", "a/b", "..", ".", "", "/abs"} {
			bad := sampleExport()
			bad.Band.ID = id
			for _, format := range Formats {
				files, err := Write(format, bad, out, nil)
				if !errors.Is(err, shared.ErrInvalidInput) {
					t.Errorf("Write(%q) with band id %q: expected ErrInvalidInput, got files=%v err=%v", format, id, files, err)
				}
			}
		}

		bad := sampleExport()
		bad.Songs = []models.Song{{ID: "../../../escaped", Title: "Escape"}}
		lyrics := map[string]*models.Lyrics{
			"../../../escaped": {Sections: []models.LyricLine{{Text: "out"}}},
		}
		files, err := Write("markdown", bad, out, lyrics)
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for song id, got files=%v err=%v", files, err)
		}

		if matches, _ := filepath.Glob(filepath.Join(root, "*.md")); len(matches) > 0 {
			t.Errorf("files written outside the output directory: %v", matches)
		}
	})
}

func TestWriteBulkExportManifest(t *testing.T) {
	t.Run("SuccessfulExport", func(t *testing.T) {
		start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
		result := &BulkExportResult{
			TotalBands:        2,
			SuccessfulExports: 2,
			Results: []BandExportResult{
				{BandID: "band1", BandName: "Sunday Team", Success: true, Files: []string{"band1_songs.csv"}},
				{BandID: "band2", BandName: "Youth Band", Success: true, Files: []string{"band2/README.md"}},
			},
			StartedAt:  start,
			FinishedAt: start.Add(1500 * time.Millisecond),
		}

		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteBulkExportManifest(result, "csv", path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{
			`"format": "csv"`,
			`"total_bands": 2`,
			`"successful_exports": 2`,
			`"duration_seconds": 1.5`,
			`"band_id": "band1"`,
			`"Sunday Team"`,
			`"status": "success"`,
		} {
			if !strings.Contains(content, want) {
				t.Errorf("Manifest missing %s", want)
			}
		}
	})

	t.Run("WithFailedExports", func(t *testing.T) {
		result := &BulkExportResult{
			TotalBands:        2,
			SuccessfulExports: 1,
			FailedExports:     1,
			Results: []BandExportResult{
				{BandID: "band1", BandName: "Sunday Team", Success: true, Files: []string{"band1.json"}},
				{BandID: "band2", BandName: "Unknown (band2)", Error: errors.New("404-Band not found")},
			},
		}

		path := filepath.Join(t.TempDir(), "manifest.json")
		if err := WriteBulkExportManifest(result, "markdown", path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"format": "markdown"`, `"failed_exports": 1`, `"status": "failed"`, `"404-Band not found"`} {
			if !strings.Contains(content, want) {
				t.Errorf("Manifest missing %s", want)
			}
		}
	})
}
