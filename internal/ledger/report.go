package ledger

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dabhounds/internal/models"
)

// RenderText renders the human-readable conversion report for an
// entry. The report is a pure projection of the ledger and is
// regenerated in full on every run.
func RenderText(entry *Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DABHounds Conversion Report — %s\n", entry.LastUpdated.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Source URL: %s\n", entry.SourceURL)
	fmt.Fprintf(&b, "Matching Mode: %s\n", strings.ToUpper(entry.MatchingMode))
	fmt.Fprintf(&b, "DAB Library ID: %s\n", entry.LibraryID)
	b.WriteString(strings.Repeat("-", 60) + "\n")

	for i, t := range entry.Tracks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, t.Artist, t.Title)
		isrc := t.ISRC
		if isrc == "" {
			isrc = "N/A"
		}
		fmt.Fprintf(&b, "    ISRC: %s\n", isrc)
		fmt.Fprintf(&b, "    Match Status: %s\n", t.MatchStatus)
		if t.DabTrackID != nil {
			fmt.Fprintf(&b, "    DAB Track ID: %s\n", *t.DabTrackID)
		} else {
			b.WriteString("    DAB Track: —\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// WriteText writes the rendered report next to the ledger entry.
// Failure here never affects dedup decisions: the ledger alone is
// authoritative.
func (s *Store) WriteText(sourceIdentity string, entry *Entry) (string, error) {
	path := filepath.Join(s.Dir, "report_"+sourceIdentity+".txt")
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(RenderText(entry)), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// ExportMissesCSV writes the unmatched tracks of an entry to a CSV
// that the CSV importer can read back for a retry run. Returns the
// number of rows written.
func ExportMissesCSV(entry *Entry, path string) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"artist", "title", "isrc", "match_status"}); err != nil {
		return 0, err
	}

	rows := 0
	for _, t := range entry.Tracks {
		if t.MatchStatus == models.StatusFound {
			continue
		}
		if err := w.Write([]string{t.Artist, t.Title, t.ISRC, t.MatchStatus}); err != nil {
			return rows, err
		}
		rows++
	}
	w.Flush()
	return rows, w.Error()
}
