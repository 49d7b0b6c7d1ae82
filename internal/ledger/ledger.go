// Package ledger persists which input tracks have already been
// converted for a given source link, so repeated runs only process the
// difference. The JSON ledger is ground truth for dedup decisions; the
// text report derived from it is never read back.
package ledger

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"dabhounds/internal/models"
)

type ProcessedTrack struct {
	TrackIdentity string  `json:"track_identity"`
	MatchStatus   string  `json:"match_status"`
	DabTrackID    *string `json:"dab_track_id"`
	ISRC          string  `json:"isrc,omitempty"`
	Artist        string  `json:"artist"`
	Title         string  `json:"title"`
}

// Entry is the durable sync-state record for one source identity.
type Entry struct {
	SourceURL    string           `json:"source_url"`
	LibraryID    string           `json:"library_id"`
	LibraryName  string           `json:"library_name"`
	MatchingMode string           `json:"matching_mode"`
	LastUpdated  time.Time        `json:"last_updated"`
	Tracks       []ProcessedTrack `json:"tracks"`
}

// Store reads and writes ledger entries, one JSON file per source
// identity, under Dir.
type Store struct {
	Dir string
}

func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// DefaultStore places the ledger under the user data directory.
func DefaultStore() *Store {
	return NewStore(filepath.Join(xdg.DataHome, "dabhounds", "ledger"))
}

// SourceIdentity derives the ledger key for an input link. It
// identifies "this input", not any single track within it.
func SourceIdentity(sourceURL string) string {
	sum := md5.Sum([]byte(sourceURL))
	return hex.EncodeToString(sum[:])
}

// TrackIdentity derives the dedup key for a descriptor. Stable
// platform IDs win over content fields because titles and artists can
// be edited upstream between runs; the ISRC comes next, and the
// "artist - title" string is the last resort.
func TrackIdentity(t models.Track) string {
	if t.SourceID != "" {
		return t.SourceID
	}
	if t.ISRC != "" {
		return t.ISRC
	}
	return fmt.Sprintf("%s - %s", t.Artist, t.Title)
}

// FromResult converts a match outcome into its ledger record.
func FromResult(r models.MatchResult) ProcessedTrack {
	return ProcessedTrack{
		TrackIdentity: TrackIdentity(r.Track),
		MatchStatus:   r.MatchStatus,
		DabTrackID:    r.DabTrackID,
		ISRC:          r.ISRC,
		Artist:        r.Artist,
		Title:         r.Title,
	}
}

func (s *Store) path(sourceIdentity string) string {
	return filepath.Join(s.Dir, sourceIdentity+".json")
}

// Load returns the entry for a source identity, or nil when none has
// been recorded yet.
func (s *Store) Load(sourceIdentity string) (*Entry, error) {
	data, err := os.ReadFile(s.path(sourceIdentity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt ledger entry %s: %w", sourceIdentity, err)
	}
	return &entry, nil
}

// SaveOrMerge creates the entry when missing, otherwise appends only
// the tracks whose identity is not recorded yet (first write wins).
// Library ID/name and mode are updated only when supplied non-empty.
// Returns the persisted entry and the number of tracks appended.
func (s *Store) SaveOrMerge(sourceIdentity, sourceURL string, tracks []ProcessedTrack, libraryID, libraryName, mode string) (*Entry, int, error) {
	entry, err := s.Load(sourceIdentity)
	if err != nil {
		return nil, 0, err
	}

	appended := 0
	if entry == nil {
		entry = &Entry{
			SourceURL:    sourceURL,
			LibraryID:    libraryID,
			LibraryName:  libraryName,
			MatchingMode: mode,
			Tracks:       dedup(tracks),
		}
		appended = len(entry.Tracks)
	} else {
		known := make(map[string]struct{}, len(entry.Tracks))
		for _, t := range entry.Tracks {
			known[t.TrackIdentity] = struct{}{}
		}
		for _, t := range tracks {
			if _, ok := known[t.TrackIdentity]; ok {
				continue
			}
			known[t.TrackIdentity] = struct{}{}
			entry.Tracks = append(entry.Tracks, t)
			appended++
		}
		if libraryID != "" {
			entry.LibraryID = libraryID
		}
		if libraryName != "" {
			entry.LibraryName = libraryName
		}
		if mode != "" {
			entry.MatchingMode = mode
		}
		if sourceURL != "" {
			entry.SourceURL = sourceURL
		}
	}
	entry.LastUpdated = time.Now().UTC()

	if err := s.write(sourceIdentity, entry); err != nil {
		return nil, 0, err
	}
	return entry, appended, nil
}

// DiffUnprocessed returns the descriptors whose identity is not yet
// recorded for the source. Called before matching on every run.
func (s *Store) DiffUnprocessed(sourceIdentity string, descriptors []models.Track) ([]models.Track, error) {
	entry, err := s.Load(sourceIdentity)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return descriptors, nil
	}

	known := make(map[string]struct{}, len(entry.Tracks))
	for _, t := range entry.Tracks {
		known[t.TrackIdentity] = struct{}{}
	}

	var unprocessed []models.Track
	for _, d := range descriptors {
		if _, ok := known[TrackIdentity(d)]; !ok {
			unprocessed = append(unprocessed, d)
		}
	}
	return unprocessed, nil
}

// Delete removes the entry in full. Used when the referenced DAB
// library no longer exists: processing restarts as if nothing had been
// synced.
func (s *Store) Delete(sourceIdentity string) error {
	err := os.Remove(s.path(sourceIdentity))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (s *Store) write(sourceIdentity string, entry *Entry) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(sourceIdentity), data, 0o644)
}

// dedup enforces identity uniqueness within a fresh batch,
// first write wins.
func dedup(tracks []ProcessedTrack) []ProcessedTrack {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]ProcessedTrack, 0, len(tracks))
	for _, t := range tracks {
		if _, ok := seen[t.TrackIdentity]; ok {
			continue
		}
		seen[t.TrackIdentity] = struct{}{}
		out = append(out, t)
	}
	return out
}
