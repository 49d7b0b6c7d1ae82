// Package database keeps a cross-run registry of resolved tracks so a
// descriptor seen before maps straight to its DAB ID without spending
// rate-limited search requests.
package database

import (
	"database/sql"
	_ "embed"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"dabhounds/internal/models"
)

//go:embed schema.sql
var schema string

type TrackMapping struct {
	DabID     string
	ISRC      string
	SpotifyID string
	YoutubeID string
}

type Registry struct {
	db *sql.DB
}

// Open opens (creating if needed) the registry database at path.
func Open(path string) (*Registry, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)
	return &Registry{db: db}, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// Upsert records a mapping. COALESCE keeps IDs already known from
// other platforms instead of wiping them with empty strings.
func (r *Registry) Upsert(m TrackMapping) error {
	if m.DabID == "" {
		return nil
	}
	const query = `
	INSERT INTO track_registry (dab_id, isrc, spotify_id, youtube_id, last_updated)
	VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(dab_id) DO UPDATE SET
		isrc = COALESCE(NULLIF(excluded.isrc, ''), track_registry.isrc),
		spotify_id = COALESCE(NULLIF(excluded.spotify_id, ''), track_registry.spotify_id),
		youtube_id = COALESCE(NULLIF(excluded.youtube_id, ''), track_registry.youtube_id),
		last_updated = CURRENT_TIMESTAMP;`

	_, err := r.db.Exec(query, m.DabID, m.ISRC, m.SpotifyID, m.YoutubeID)
	return err
}

// DabID looks up a cached DAB ID for the descriptor, preferring the
// platform-stable source ID, then the ISRC. Returns "" on a miss.
func (r *Registry) DabID(t models.Track) string {
	if t.SourceID != "" {
		var column string
		switch t.Type {
		case models.SourceSpotify:
			column = "spotify_id"
		case models.SourceYouTube:
			column = "youtube_id"
		}
		if column != "" {
			if id := r.lookup(column, t.SourceID); id != "" {
				return id
			}
		}
	}
	if t.ISRC != "" {
		return r.lookup("isrc", t.ISRC)
	}
	return ""
}

// DabIDByISRC consults the ISRC column alone, ignoring source-ID
// mappings. Returns "" on a miss or an empty ISRC.
func (r *Registry) DabIDByISRC(isrc string) string {
	if isrc == "" {
		return ""
	}
	return r.lookup("isrc", isrc)
}

func (r *Registry) lookup(column, value string) string {
	var dabID string
	err := r.db.QueryRow("SELECT dab_id FROM track_registry WHERE "+column+" = ?", value).Scan(&dabID)
	if err != nil {
		return ""
	}
	return dabID
}
