package matcher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"dabhounds/internal/dab"
	"dabhounds/internal/database"
	"dabhounds/internal/models"
	"dabhounds/internal/qobuz"
)

// newTestDAB wires a client against a fake DAB API with the rate
// limiter opened up so tests run instantly.
func newTestDAB(t *testing.T, handler http.Handler) (*dab.Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := dab.NewClient("test-token")
	client.BaseURL = server.URL
	client.Limiter = rate.NewLimiter(rate.Inf, 1)
	return client, server
}

func searchResponse(tracks ...dab.Track) string {
	payload := struct {
		Tracks []dab.Track `json:"tracks"`
	}{tracks}
	b, _ := json.Marshal(payload)
	return string(b)
}

func qualityTrack(id, artist, title string, sampleRate, bitDepth int) dab.Track {
	tr := candidate(id, artist, title)
	tr.AudioQuality.SampleRate = sampleRate
	tr.AudioQuality.BitDepth = bitDepth
	return tr
}

func newMatcher(client *dab.Client) *Matcher {
	return &Matcher{DAB: client, In: strings.NewReader(""), Out: &strings.Builder{}}
}

func TestStrictModeWithoutISRCIssuesNoSearch(t *testing.T) {
	var calls int64
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, searchResponse())
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeStrict, 80)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.MatchStatus)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestStrictModePicksBestQuality(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "US1234567890", r.URL.Query().Get("q"))
		fmt.Fprint(w, searchResponse(
			qualityTrack("1", "Daft Punk", "One More Time", 44100, 16),
			qualityTrack("2", "Daft Punk", "One More Time", 96000, 24),
			qualityTrack("3", "Daft Punk", "One More Time", 96000, 16),
		))
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk", ISRC: "US1234567890"}, ModeStrict, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "2", *res.DabTrackID)
}

func TestStrictModeNarrowsByQobuzIDs(t *testing.T) {
	qobuzSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"tracks":{"items":[{"id":1,"isrc":"US1234567890"}]}}}`)
	}))
	t.Cleanup(qobuzSrv.Close)

	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			qualityTrack("1", "Daft Punk", "One More Time", 44100, 16),
			qualityTrack("2", "Daft Punk", "One More Time", 96000, 24),
		))
	}))

	m := newMatcher(client)
	m.Qobuz = &qobuz.Client{BaseURL: qobuzSrv.URL, HTTPClient: qobuzSrv.Client()}

	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk", ISRC: "US1234567890"}, ModeStrict, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	// The cross-reference narrows to ID 1 even though 2 is higher quality.
	assert.Equal(t, "1", *res.DabTrackID)
}

func TestNarrowByISRCFallsBackToUnfiltered(t *testing.T) {
	candidates := []dab.Track{
		candidate("10", "a", "b"),
		candidate("11", "c", "d"),
	}

	// No overlap between cross-reference IDs and candidates: the
	// unfiltered set must survive.
	got := narrowByISRC(candidates, []string{"99"})
	assert.Equal(t, candidates, got)

	// Empty ID set leaves candidates untouched too.
	got = narrowByISRC(candidates, nil)
	assert.Equal(t, candidates, got)

	// Overlap filters.
	got = narrowByISRC(candidates, []string{"11"})
	require.Len(t, got, 1)
	assert.Equal(t, "11", got[0].ID.String())
}

func TestLenientModeFallsBackToFuzzy(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			candidate("1", "Daft Punk", "Harder Better Faster Stronger"),
			candidate("2", "Daft Punk", "One More Time"),
		))
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeLenient, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "2", *res.DabTrackID)
}

func TestLenientModePrefersISRCPath(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "US1234567890" {
			fmt.Fprint(w, searchResponse(qualityTrack("7", "Daft Punk", "One More Time", 44100, 16)))
			return
		}
		t.Errorf("unexpected fuzzy search after ISRC hit: %s", r.URL.RawQuery)
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk", ISRC: "US1234567890"}, ModeLenient, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "7", *res.DabTrackID)
}

func TestLenientModeRejectsBelowThreshold(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(candidate("1", "Daft Punk", "Harder Better Faster Stronger")))
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeLenient, 80)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.MatchStatus)
}

func TestSearchFailureAbsorbedAsNotFound(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	m := newMatcher(client)
	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeLenient, 80)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.MatchStatus)
}

func TestUnknownModeIsFatal(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse())
	}))

	m := newMatcher(client)
	_, err := m.Match(models.Track{Title: "x"}, "aggressive", 80)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match mode")
}

func TestManualModeSelection(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(
			candidate("1", "Daft Punk", "One More Time"),
			candidate("2", "Daft Punk", "One More Time (Live)"),
		))
	}))

	m := newMatcher(client)
	m.In = strings.NewReader("2\n")

	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeManual, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "2", *res.DabTrackID)
}

func TestManualModeRepromptsOnInvalidInput(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(candidate("1", "Daft Punk", "One More Time")))
	}))

	m := newMatcher(client)
	var out strings.Builder
	m.In = strings.NewReader("9\nnope\n1\n")
	m.Out = &out

	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeManual, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "1", *res.DabTrackID)
	assert.Contains(t, out.String(), "Invalid input")
}

func TestManualModeEmptyInputSkips(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse(candidate("1", "Daft Punk", "One More Time")))
	}))

	m := newMatcher(client)
	m.In = strings.NewReader("\n")

	res, err := m.Match(models.Track{Title: "One More Time", Artist: "Daft Punk"}, ModeManual, 80)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.MatchStatus)
}

func TestRegistryCacheHitSkipsSearch(t *testing.T) {
	var calls int64
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, searchResponse())
	}))

	reg, err := database.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	require.NoError(t, reg.Upsert(database.TrackMapping{DabID: "42", SpotifyID: "sp123"}))

	m := newMatcher(client)
	m.Registry = reg

	track := models.Track{Title: "One More Time", Artist: "Daft Punk", SourceID: "sp123", Type: models.SourceSpotify}
	res, err := m.Match(track, ModeLenient, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "42", *res.DabTrackID)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestStrictModeIgnoresSourceIDCacheEntries(t *testing.T) {
	var calls int64
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, searchResponse())
	}))

	reg, err := database.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	// A source-ID mapping recorded by an earlier lenient fuzzy match.
	require.NoError(t, reg.Upsert(database.TrackMapping{DabID: "42", SpotifyID: "sp123"}))

	m := newMatcher(client)
	m.Registry = reg

	// Without an ISRC, strict mode must decline without consulting the
	// source-ID cache column and without searching.
	track := models.Track{Title: "One More Time", Artist: "Daft Punk", SourceID: "sp123", Type: models.SourceSpotify}
	res, err := m.Match(track, ModeStrict, 80)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, res.MatchStatus)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))

	// An ISRC-keyed mapping is trusted in strict mode.
	require.NoError(t, reg.Upsert(database.TrackMapping{DabID: "43", ISRC: "GBDUW0000059"}))
	track.ISRC = "GBDUW0000059"
	res, err = m.Match(track, ModeStrict, 80)
	require.NoError(t, err)
	require.True(t, res.Found())
	assert.Equal(t, "43", *res.DabTrackID)
	assert.EqualValues(t, 0, atomic.LoadInt64(&calls))
}

func TestUnknownModeRejectedBeforeCache(t *testing.T) {
	client, _ := newTestDAB(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, searchResponse())
	}))

	reg, err := database.Open(filepath.Join(t.TempDir(), "registry.db"))
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	require.NoError(t, reg.Upsert(database.TrackMapping{DabID: "42", SpotifyID: "sp123"}))

	m := newMatcher(client)
	m.Registry = reg

	track := models.Track{Title: "One More Time", SourceID: "sp123", Type: models.SourceSpotify}
	_, err = m.Match(track, "aggressive", 80)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown match mode")
}
