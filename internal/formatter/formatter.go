// package formatter provides functions to export band data to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
)

// Formats lists the export formats Write understands.
var Formats = []string{"json", "csv", "markdown", "txt"}

const dateLayout = "Mon Jan 2, 2006 15:04"

// ExportToCSV converts a band's song library to CSV with columns: ID, Title, Artist, Key, BPM, Tags
func ExportToCSV(export *models.BandExport) ([]byte, error) {
	records := make([][]string, 0, len(export.Songs))
	for _, song := range export.Songs {
		bpm := ""
		if song.BPM > 0 {
			bpm = strconv.Itoa(song.BPM)
		}
		records = append(records, []string{song.ID, song.Title, song.Artist, song.Key, bpm, strings.Join(song.Tags, ";")})
	}
	return writeCSV([]string{"ID", "Title", "Artist", "Key", "BPM", "Tags"}, records)
}

// EventsToCSV converts a band's events to CSV with columns: ID, Title, Location, Starts, Ends, Setlist
//
// The setlist column holds song titles separated by " | ".
func EventsToCSV(export *models.BandExport) ([]byte, error) {
	records := make([][]string, 0, len(export.Events))
	for _, ev := range export.Events {
		records = append(records, []string{
			ev.ID,
			ev.Title,
			ev.Location,
			formatTime(ev.StartsAt, time.RFC3339),
			formatTime(ev.EndsAt, time.RFC3339),
			strings.Join(setlist(export, ev), " | "),
		})
	}
	return writeCSV([]string{"ID", "Title", "Location", "Starts", "Ends", "Setlist"}, records)
}

func writeCSV(headers []string, records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders the band as a README: roster, events with their setlists, then the song library.
func ExportToMarkdown(export *models.BandExport) ([]byte, error) {
	var buf bytes.Buffer
	band := export.Band

	fmt.Fprintf(&buf, "# %s\n\n", band.Name)
	if band.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", band.Description)
	}
	fmt.Fprintf(&buf, "**Members**: %d\n", len(band.Members))
	fmt.Fprintf(&buf, "**Events**: %d\n", len(export.Events))
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(export.Songs))

	if len(band.Members) > 0 {
		buf.WriteString("## Members\n\n")
		buf.WriteString("| Name | Role | Admin |\n|---|---|---|\n")
		for _, m := range band.Members {
			admin := ""
			if m.Admin {
				admin = "yes"
			}
			fmt.Fprintf(&buf, "| %s | %s | %s |\n", escapeCell(m.Name), escapeCell(m.Role), admin)
		}
		buf.WriteString("\n")
	}

	if len(export.Events) > 0 {
		buf.WriteString("## Events\n\n")
		for _, ev := range export.Events {
			fmt.Fprintf(&buf, "### %s\n\n", ev.Title)
			fmt.Fprintf(&buf, "- **When**: %s\n", formatTime(ev.StartsAt, dateLayout))
			if ev.Location != "" {
				fmt.Fprintf(&buf, "- **Where**: %s\n", ev.Location)
			}
			if ev.Notes != "" {
				fmt.Fprintf(&buf, "- **Notes**: %s\n", ev.Notes)
			}
			if titles := setlist(export, ev); len(titles) > 0 {
				buf.WriteString("\n")
				for i, title := range titles {
					fmt.Fprintf(&buf, "%d. %s\n", i+1, title)
				}
			}
			buf.WriteString("\n")
		}
	}

	buf.WriteString("## Songs\n\n")
	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "%d. %s%s%s\n", i+1, song.Title, artistPart(song), keyPart(song))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a band export to plain text format
func ExportToText(export *models.BandExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Band: %s\n", export.Band.Name)
	if export.Band.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Band.Description)
	}
	fmt.Fprintf(&buf, "Events: %d\n", len(export.Events))
	for _, ev := range export.Events {
		fmt.Fprintf(&buf, "  %s  %s\n", formatTime(ev.StartsAt, dateLayout), ev.Title)
		for i, title := range setlist(export, ev) {
			fmt.Fprintf(&buf, "    %d. %s\n", i+1, title)
		}
	}

	fmt.Fprintf(&buf, "Songs: %d\n", len(export.Songs))
	for i, song := range export.Songs {
		fmt.Fprintf(&buf, "  %d. %s%s%s\n", i+1, song.Title, artistPart(song), keyPart(song))
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the full export, indented.
func ExportToJSON(export *models.BandExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ToMetadataJSON generates a JSON representation of band metadata (without events or songs)
func ToMetadataJSON(band models.Band) ([]byte, error) {
	return shared.MarshalJSON(band, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	SongsFile    string
	EventsFile   string
	MetadataFile string
}

// Files lists every path in the result.
func (r *CSVExportResult) Files() []string {
	return []string{r.SongsFile, r.EventsFile, r.MetadataFile}
}

// WriteCSVExport exports a band to CSV with an accompanying metadata JSON file.
//
// Defaults to the band ID as the base filename & creates {base}_songs.csv, {base}_events.csv and {base}_metadata.json
func WriteCSVExport(export *models.BandExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Band.ID
	}

	songsCSV, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate songs CSV: %w", err)
	}
	eventsCSV, err := EventsToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate events CSV: %w", err)
	}
	metadataJSON, err := ToMetadataJSON(export.Band)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	result := &CSVExportResult{
		SongsFile:    baseFilepath + "_songs.csv",
		EventsFile:   baseFilepath + "_events.csv",
		MetadataFile: baseFilepath + "_metadata.json",
	}
	writes := []struct {
		path string
		data []byte
	}{
		{result.SongsFile, songsCSV},
		{result.EventsFile, eventsCSV},
		{result.MetadataFile, metadataJSON},
	}
	for _, w := range writes {
		if err := os.WriteFile(w.path, w.data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", filepath.Base(w.path), err)
		}
	}

	return result, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
}

// WriteMarkdownExport exports a band to Markdown in a dedicated directory.
//
// Directory name defaults to the band ID. Creates {dir}/README.md and one {dir}/songs/{id}.md chord sheet per song that has lyrics.
func WriteMarkdownExport(export *models.BandExport, outputDir string, lyrics map[string]*models.Lyrics) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Band.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	if len(lyrics) == 0 {
		return result, nil
	}

	songsDir := filepath.Join(outputDir, "songs")
	if err := os.MkdirAll(songsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create songs directory: %w", err)
	}
	for _, song := range export.Songs {
		sheet, ok := lyrics[song.ID]
		if !ok || sheet == nil {
			continue
		}
		name, err := fileName(song.ID)
		if err != nil {
			return nil, fmt.Errorf("song %w", err)
		}
		path := filepath.Join(songsDir, name+".md")
		if err := os.WriteFile(path, ChordSheet(song, sheet), 0644); err != nil {
			return nil, fmt.Errorf("failed to write chord sheet: %w", err)
		}
		result.Files = append(result.Files, path)
	}

	return result, nil
}

// ChordSheet renders lyrics with chords placed above the lyric text at their offsets.
func ChordSheet(song models.Song, lyrics *models.Lyrics) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", song.Title)
	if song.Key != "" || song.BPM > 0 {
		fmt.Fprintf(&buf, "Key: %s  BPM: %d\n\n", song.Key, song.BPM)
	}

	section := ""
	buf.WriteString("```\n")
	for _, line := range lyrics.Sections {
		if line.Section != "" && line.Section != section {
			section = line.Section
			fmt.Fprintf(&buf, "[%s]\n", section)
		}
		if len(line.Chords) > 0 {
			buf.WriteString(chordLine(line.Chords))
			buf.WriteString("\n")
		}
		buf.WriteString(line.Text)
		buf.WriteString("\n")
	}
	buf.WriteString("```\n")

	return buf.Bytes()
}

// chordLine places each chord at its position, pushing right when chords would overlap.
func chordLine(chords []models.Chord) string {
	var b strings.Builder
	for _, c := range chords {
		if pad := c.Position - b.Len(); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		} else if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(c.Name)
	}
	return b.String()
}

// WriteTextExport exports a band to plain text format.
//
// Defaults to {band.ID}.txt as the filename.
func WriteTextExport(export *models.BandExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.txt", export.Band.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport exports a band to an indented JSON file.
//
// Defaults to {band.ID}.json as the filename.
func WriteJSONExport(export *models.BandExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s.json", export.Band.ID)
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Write exports a band into outputDir in the given format and returns the files it created.
func Write(format string, export *models.BandExport, outputDir string, lyrics map[string]*models.Lyrics) ([]string, error) {
	id, err := fileName(export.Band.ID)
	if err != nil {
		return nil, fmt.Errorf("band %w", err)
	}
	switch format {
	case "csv":
		res, err := WriteCSVExport(export, filepath.Join(outputDir, id))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return res.Files(), nil
	case "markdown", "md":
		res, err := WriteMarkdownExport(export, filepath.Join(outputDir, id), lyrics)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil
	case "txt", "text":
		path, err := WriteTextExport(export, filepath.Join(outputDir, id+".txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil
	case "json", "":
		path, err := WriteJSONExport(export, filepath.Join(outputDir, id+".json"))
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// fileName returns id when it names a single entry inside an export directory.
// Separators and dot segments are refused.
func fileName(id string) (string, error) {
	if id == "." || filepath.Base(id) != id || !filepath.IsLocal(id) {
		return "", fmt.Errorf("id %q is not a valid file name: %w", id, shared.ErrInvalidInput)
	}
	return id, nil
}

func setlist(export *models.BandExport, ev models.Event) []string {
	titles := make([]string, 0, len(ev.SongIDs))
	for _, id := range ev.SongIDs {
		titles = append(titles, export.SongTitle(id))
	}
	return titles
}

func artistPart(song models.Song) string {
	if song.Artist == "" {
		return ""
	}
	return " - " + song.Artist
}

func keyPart(song models.Song) string {
	if song.Key == "" {
		return ""
	}
	return fmt.Sprintf(" [%s]", song.Key)
}

func formatTime(t time.Time, layout string) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(layout)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
