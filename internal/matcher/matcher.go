// Package matcher decides which DAB catalog track, if any, corresponds
// to an input descriptor, under one of three matching policies.
package matcher

import (
	"fmt"
	"io"
	"os"

	"dabhounds/internal/dab"
	"dabhounds/internal/database"
	"dabhounds/internal/models"
	"dabhounds/internal/musicbrainz"
	"dabhounds/internal/qobuz"
)

// Matching modes, selected per run.
const (
	ModeStrict  = "strict"
	ModeLenient = "lenient"
	ModeManual  = "manual"
)

const DefaultThreshold = 80

// ValidMode reports whether mode is one of the three policies. Unknown
// modes are a fatal configuration error and must be rejected before
// any track is processed.
func ValidMode(mode string) bool {
	return mode == ModeStrict || mode == ModeLenient || mode == ModeManual
}

// Matcher holds the collaborators a match needs. DAB is required;
// Qobuz and MusicBrainz lookups are skipped when nil, and Registry is
// an optional cross-run cache consulted before any network search.
type Matcher struct {
	DAB         *dab.Client
	Qobuz       *qobuz.Client
	MusicBrainz *musicbrainz.Client
	Registry    *database.Registry

	// Manual-mode prompt streams, swappable in tests.
	In  io.Reader
	Out io.Writer
}

func New(client *dab.Client) *Matcher {
	return &Matcher{
		DAB:         client,
		Qobuz:       qobuz.NewClient(),
		MusicBrainz: musicbrainz.NewClient(),
		In:          os.Stdin,
		Out:         os.Stdout,
	}
}

// Match produces exactly one outcome for the descriptor. Search and
// lookup failures inside are absorbed as "no candidates"; the only
// error returned is an unknown mode, rejected before anything else
// runs, registry cache included.
func (m *Matcher) Match(t models.Track, mode string, threshold int) (*models.MatchResult, error) {
	if !ValidMode(mode) {
		return nil, fmt.Errorf("unknown match mode: %q", mode)
	}

	if cached := m.registryLookup(t, mode); cached != nil {
		return cached, nil
	}

	var matched *dab.Track
	switch mode {
	case ModeStrict:
		matched = m.matchStrict(t)
	case ModeLenient:
		matched = m.matchLenient(t, threshold)
	case ModeManual:
		matched = m.matchManual(t)
	}

	if matched == nil {
		return &models.MatchResult{Track: t, MatchStatus: models.StatusNotFound}, nil
	}

	id := matched.ID.String()
	m.registryStore(t, id)
	return &models.MatchResult{
		Track:       t,
		MatchStatus: models.StatusFound,
		DabTrackID:  &id,
		RawTrack:    matched,
	}, nil
}

// matchStrict requires an ISRC; without one it declines without
// issuing a single search call.
func (m *Matcher) matchStrict(t models.Track) *dab.Track {
	if t.ISRC == "" {
		return nil
	}
	return m.searchByISRC(t.ISRC)
}

func (m *Matcher) matchLenient(t models.Track, threshold int) *dab.Track {
	// Step 1: ISRC match, same path as strict.
	if t.ISRC != "" {
		if found := m.searchByISRC(t.ISRC); found != nil {
			return found
		}
	}

	// Step 2: metadata refinement; on failure the descriptor's own
	// title/artist stand.
	title, artist := t.Title, t.Artist
	if m.MusicBrainz != nil {
		if meta := m.MusicBrainz.Resolve(t.Title, t.Artist); meta != nil {
			title, artist = meta.Title, meta.Artist
		}
	}

	// Step 3: search and fuzzy filter.
	query := artist + " " + title
	results, err := m.DAB.Search(query)
	if err != nil || len(results) == 0 {
		return nil
	}
	return BestFuzzy(query, results, threshold)
}

// searchByISRC searches DAB with the raw ISRC, narrows by the Qobuz
// cross-reference and picks the best quality candidate.
func (m *Matcher) searchByISRC(isrc string) *dab.Track {
	results, err := m.DAB.Search(isrc)
	if err != nil || len(results) == 0 {
		return nil
	}
	if m.Qobuz != nil {
		results = narrowByISRC(results, m.Qobuz.IDsForISRC(isrc))
	}
	return dab.BestQuality(results)
}

// narrowByISRC filters candidates down to those whose ID appears in
// the cross-reference set. An empty intersection falls back to the
// unfiltered candidates: a missing overlap must never discard them all.
func narrowByISRC(candidates []dab.Track, ids []string) []dab.Track {
	if len(ids) == 0 {
		return candidates
	}
	idSet := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		idSet[id] = struct{}{}
	}
	var filtered []dab.Track
	for _, c := range candidates {
		if _, ok := idSet[c.ID.String()]; ok {
			filtered = append(filtered, c)
		}
	}
	if len(filtered) == 0 {
		return candidates
	}
	return filtered
}

// registryLookup checks the cross-run SQLite registry for an already
// known DAB ID before spending search requests. Strict mode only
// trusts the ISRC-keyed column: a source-ID mapping may have been
// recorded by a lenient fuzzy match, which strict mode must not
// inherit.
func (m *Matcher) registryLookup(t models.Track, mode string) *models.MatchResult {
	if m.Registry == nil {
		return nil
	}
	var id string
	if mode == ModeStrict {
		id = m.Registry.DabIDByISRC(t.ISRC)
	} else {
		id = m.Registry.DabID(t)
	}
	if id == "" {
		return nil
	}
	return &models.MatchResult{
		Track:       t,
		MatchStatus: models.StatusFound,
		DabTrackID:  &id,
	}
}

func (m *Matcher) registryStore(t models.Track, dabID string) {
	if m.Registry == nil {
		return
	}
	_ = m.Registry.Upsert(database.TrackMapping{
		DabID:     dabID,
		ISRC:      t.ISRC,
		SpotifyID: sourceID(t, models.SourceSpotify),
		YoutubeID: sourceID(t, models.SourceYouTube),
	})
}

func sourceID(t models.Track, kind string) string {
	if t.Type == kind {
		return t.SourceID
	}
	return ""
}
