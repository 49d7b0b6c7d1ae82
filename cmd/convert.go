package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"dabhounds/internal/auth"
	"dabhounds/internal/dab"
	"dabhounds/internal/database"
	"dabhounds/internal/ledger"
	"dabhounds/internal/matcher"
	"dabhounds/internal/models"
	"dabhounds/internal/parser"
)

func runConvert(link string) error {
	cfg, err := auth.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mode := flagMode
	if mode == "" {
		mode = cfg.MatchMode
	}
	if !matcher.ValidMode(mode) {
		return fmt.Errorf("unknown match mode: %q", mode)
	}

	threshold := effectiveThreshold(cfg)
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("fuzzy threshold must be 0-100, got %d", threshold)
	}

	link = stripTracking(strings.TrimSpace(link))
	infof("Input: %s", link)

	token, err := auth.EnsureLoggedIn(cfg)
	if err != nil {
		return err
	}

	client := dab.NewClient(token)
	client.BaseURL = cfg.DABAPIBase

	tracks, sourceName, err := fetchTracks(cfg, link)
	if err != nil {
		return err
	}
	if len(tracks) == 0 {
		return fmt.Errorf("no tracks found at %s", link)
	}
	for i := range tracks {
		tracks[i].SourceURL = link
	}
	infof("Found %d tracks in %q", len(tracks), sourceName)

	store := ledger.DefaultStore()
	sourceID := ledger.SourceIdentity(link)

	entry, err := store.Load(sourceID)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	// Staleness check: a previously-recorded library that no longer
	// exists voids the whole entry and the run starts fresh. Network
	// failures during the check keep the entry untouched.
	if entry != nil && entry.LibraryID != "" {
		exists, err := client.LibraryExists(entry.LibraryID)
		if err == nil && !exists {
			warnf("Previous DAB library no longer exists. Resetting sync state.")
			if err := store.Delete(sourceID); err != nil {
				return fmt.Errorf("reset ledger: %w", err)
			}
			entry = nil
		}
	}

	toProcess := tracks
	if entry != nil {
		toProcess, err = store.DiffUnprocessed(sourceID, tracks)
		if err != nil {
			return err
		}
		if skipped := len(tracks) - len(toProcess); skipped > 0 {
			infof("%d tracks already synced; processing %d new tracks.", skipped, len(toProcess))
		} else {
			infof("No previously-synced tracks found; processing all tracks.")
		}
	} else {
		infof("No previous sync state; processing all tracks.")
	}

	m := matcher.New(client)
	if reg, err := database.Open(filepath.Join(xdg.DataHome, "dabhounds", "registry.db")); err == nil {
		defer reg.Close()
		m.Registry = reg
	} else {
		warnf("Track registry unavailable: %s", err)
	}

	// Sequential on purpose: the rate limiter enforces a global
	// interval and manual mode blocks on the terminal.
	var results []*models.MatchResult
	matched := 0
	for i, t := range toProcess {
		infof("Matching (%d/%d): %s - %s", i+1, len(toProcess), t.Artist, t.Title)
		res, err := m.Match(t, mode, threshold)
		if err != nil {
			return err
		}
		if res.Found() {
			matched++
			infof("Match found: %s - %s (DAB ID: %s)", res.Artist, res.Title, *res.DabTrackID)
		} else {
			infof("No match found for: %s - %s", t.Artist, t.Title)
		}
		results = append(results, res)
	}

	libraryID, libraryName := "", ""
	if entry != nil {
		libraryID, libraryName = entry.LibraryID, entry.LibraryName
	}

	if matched > 0 {
		if libraryID == "" {
			libraryName = "DABHounds " + time.Now().Format("2006-01-02 15:04")
			infof("Creating new library: %s", libraryName)
			libraryID, err = client.CreateLibrary(libraryName, "Created by DABHounds", true)
			if err != nil {
				return fmt.Errorf("create library: %w", err)
			}
		} else {
			infof("Adding new tracks to existing library: %s", libraryName)
		}

		for _, res := range results {
			if !res.Found() {
				continue
			}
			// The add endpoint only accepts the full track object, so
			// registry cache hits are re-searched to recover it first.
			full, ok := res.RawTrack.(*dab.Track)
			if !ok || full == nil {
				full = resolveFullTrack(client, res)
			}
			if full == nil {
				warnf("Could not resolve full track for %s - %s; skipping library add.", res.Artist, res.Title)
				continue
			}
			// Per-track add failures are warnings: library mutation is
			// independent per track and the run continues.
			if err := client.AddTrack(libraryID, *full); err != nil {
				warnf("Failed to add %s - %s: %s", res.Artist, res.Title, err)
			}
		}
		infof("Library updated: https://dabmusic.xyz/shared/library/%s", libraryID)
	} else if libraryID == "" {
		infof("No tracks matched; skipping library creation.")
	}

	processed := make([]ledger.ProcessedTrack, 0, len(results))
	for _, res := range results {
		processed = append(processed, ledger.FromResult(*res))
	}

	merged, appended, err := store.SaveOrMerge(sourceID, link, processed, libraryID, libraryName, mode)
	if err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}

	if path, err := store.WriteText(sourceID, merged); err != nil {
		warnf("Report write failed: %s", err)
	} else {
		infof("Report written to %s", path)
	}

	if flagMissesCSV != "" {
		if n, err := ledger.ExportMissesCSV(merged, flagMissesCSV); err != nil {
			warnf("CSV export failed: %s", err)
		} else {
			infof("Exported %d unmatched tracks to %s", n, flagMissesCSV)
		}
	}

	infof("Conversion complete: %d matched, %d unmatched, %d newly recorded.",
		matched, len(results)-matched, appended)
	return nil
}

// effectiveThreshold takes the --threshold flag when it was set on the
// command line, an explicit 0 included, and the configured default
// otherwise.
func effectiveThreshold(cfg *auth.Config) int {
	if cmdRoot.Flags().Changed("threshold") {
		return flagThreshold
	}
	return cfg.FuzzyThreshold
}

// resolveFullTrack re-searches DAB for a match that came out of the
// registry cache and returns the candidate carrying the cached ID.
func resolveFullTrack(client *dab.Client, res *models.MatchResult) *dab.Track {
	query := res.ISRC
	if query == "" {
		query = res.Artist + " " + res.Title
	}
	candidates, err := client.Search(query)
	if err != nil {
		return nil
	}
	for i := range candidates {
		if candidates[i].ID.String() == *res.DabTrackID {
			return &candidates[i]
		}
	}
	return nil
}

// fetchTracks dispatches the link to the right source fetcher.
func fetchTracks(cfg *auth.Config, link string) ([]models.Track, string, error) {
	switch {
	case strings.Contains(link, "open.spotify.com"):
		infof("Detected Spotify link")
		return newSpotifyParser(cfg).Parse(context.Background(), link)
	case strings.Contains(link, "youtube.com"), strings.Contains(link, "youtu.be"):
		infof("Detected YouTube link")
		return parser.ParseYouTube(link)
	case strings.HasSuffix(strings.ToLower(link), ".csv"):
		infof("Detected CSV file")
		return parser.ParseCSVFile(link)
	default:
		return nil, "", fmt.Errorf("only Spotify links, YouTube links and CSV files are supported")
	}
}

func newSpotifyParser(cfg *auth.Config) *parser.SpotifyParser {
	id := cfg.SpotifyClientID
	secret := cfg.SpotifyClientSecret
	if env := os.Getenv("SPOTIFY_ID"); env != "" {
		id = env
	}
	if env := os.Getenv("SPOTIFY_SECRET"); env != "" {
		secret = env
	}

	var client *spotify.Client
	if id != "" && secret != "" {
		config := &clientcredentials.Config{
			ClientID:     id,
			ClientSecret: secret,
			TokenURL:     spotifyauth.TokenURL,
		}
		client = spotify.New(config.Client(context.Background()))
	}
	return parser.NewSpotifyParser(client)
}

// stripTracking drops the ?si=/&si= share-tracking parameter from
// Spotify links so identical playlists hash to the same source
// identity.
func stripTracking(link string) string {
	if idx := strings.Index(link, "?si="); idx != -1 {
		return link[:idx]
	}
	if idx := strings.Index(link, "&si="); idx != -1 {
		return link[:idx]
	}
	return link
}
