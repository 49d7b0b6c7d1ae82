package models

// Track is a loosely-structured descriptor extracted from an upstream
// source (Spotify, YouTube or a CSV export). Title is always set; the
// other fields are best-effort and may be enriched before matching.
type Track struct {
	Title     string `json:"title"`
	Artist    string `json:"artist"`
	Album     string `json:"album,omitempty"`
	ISRC      string `json:"isrc,omitempty"`
	Duration  int    `json:"duration_seconds,omitempty"`
	SourceID  string `json:"source_id,omitempty"`
	Type      string `json:"type"`
	SourceURL string `json:"source_url,omitempty"`
}

// Source kinds carried in Track.Type.
const (
	SourceSpotify = "spotify"
	SourceYouTube = "youtube"
	SourceCSV     = "csv"
)

// Match statuses.
const (
	StatusFound    = "FOUND"
	StatusNotFound = "NOT_FOUND"
)

type MatchResult struct {
	Track
	MatchStatus string      `json:"match_status"`
	DabTrackID  *string     `json:"dab_track_id"`
	RawTrack    interface{} `json:"-"` // *dab.Track when matched via search; nil on registry cache hits
}

func (r *MatchResult) Found() bool {
	return r != nil && r.MatchStatus == StatusFound
}

type LibraryInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
