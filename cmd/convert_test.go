package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"dabhounds/internal/auth"
	"dabhounds/internal/dab"
	"dabhounds/internal/models"
)

func newTestDAB(t *testing.T, handler http.HandlerFunc) *dab.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := dab.NewClient("test-token")
	client.BaseURL = server.URL
	client.Limiter = rate.NewLimiter(rate.Inf, 1)
	return client
}

func cacheHit(dabID string, track models.Track) *models.MatchResult {
	return &models.MatchResult{Track: track, MatchStatus: models.StatusFound, DabTrackID: &dabID}
}

func TestResolveFullTrackByISRC(t *testing.T) {
	client := newTestDAB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GBDUW0000059", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"tracks":[
			{"id":41,"title":"One More Time","artist":"Daft Punk"},
			{"id":42,"title":"One More Time","artist":"Daft Punk"}
		]}`)
	})

	res := cacheHit("42", models.Track{Artist: "Daft Punk", Title: "One More Time", ISRC: "GBDUW0000059"})
	full := resolveFullTrack(client, res)
	require.NotNil(t, full)
	assert.Equal(t, "42", full.ID.String())
}

func TestResolveFullTrackFallsBackToTitleQuery(t *testing.T) {
	client := newTestDAB(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Daft Punk One More Time", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"tracks":[{"id":42,"title":"One More Time","artist":"Daft Punk"}]}`)
	})

	res := cacheHit("42", models.Track{Artist: "Daft Punk", Title: "One More Time"})
	full := resolveFullTrack(client, res)
	require.NotNil(t, full)
	assert.Equal(t, "42", full.ID.String())
}

func TestResolveFullTrackMissesYieldNil(t *testing.T) {
	t.Run("cached ID absent from results", func(t *testing.T) {
		client := newTestDAB(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"tracks":[{"id":7,"title":"Something Else","artist":"x"}]}`)
		})
		res := cacheHit("42", models.Track{Artist: "Daft Punk", Title: "One More Time"})
		assert.Nil(t, resolveFullTrack(client, res))
	})

	t.Run("search failure", func(t *testing.T) {
		client := newTestDAB(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		res := cacheHit("42", models.Track{Artist: "Daft Punk", Title: "One More Time"})
		assert.Nil(t, resolveFullTrack(client, res))
	})
}

func TestEffectiveThresholdHonorsExplicitZero(t *testing.T) {
	cfg := &auth.Config{FuzzyThreshold: 80}

	// Flag untouched: the configured default stands.
	assert.Equal(t, 80, effectiveThreshold(cfg))

	require.NoError(t, cmdRoot.Flags().Set("threshold", "0"))
	assert.Equal(t, 0, effectiveThreshold(cfg))
}
