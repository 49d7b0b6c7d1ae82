package matcher

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"dabhounds/internal/dab"
	"dabhounds/internal/models"
)

// matchManual searches with the raw descriptor's "artist title" query
// and blocks for an operator selection. Empty input skips the track;
// anything that is not a valid 1-based index is re-prompted.
func (m *Matcher) matchManual(t models.Track) *dab.Track {
	query := t.Artist + " " + t.Title
	results, err := m.DAB.Search(query)
	if err != nil || len(results) == 0 {
		fmt.Fprintln(m.Out, "[DABHound] No DAB results found.")
		return nil
	}

	fmt.Fprintf(m.Out, "\n[DABHound] Manual match for: %s - %s\n", t.Artist, t.Title)
	for i, track := range results {
		album := track.AlbumTitle
		if album == "" {
			album = "-"
		}
		fmt.Fprintf(m.Out, "%d. %s - %s (Album: %s)\n", i+1, track.Artist, track.Title, album)
	}

	scanner := bufio.NewScanner(m.In)
	for {
		fmt.Fprintf(m.Out, "Pick a track [1-%d] or Enter to skip: ", len(results))
		if !scanner.Scan() {
			return nil
		}
		choice := strings.TrimSpace(scanner.Text())
		if choice == "" {
			return nil
		}
		if idx, err := strconv.Atoi(choice); err == nil && idx >= 1 && idx <= len(results) {
			return &results[idx-1]
		}
		fmt.Fprintln(m.Out, "[DABHound] Invalid input.")
	}
}
