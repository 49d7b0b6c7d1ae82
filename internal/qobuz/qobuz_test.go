package qobuz

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &Client{BaseURL: server.URL, HTTPClient: server.Client()}
}

func TestIDsForISRCFiltersExactMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GBDUW0000059", r.URL.Query().Get("q"))
		fmt.Fprint(w, `{"data":{"tracks":{"items":[
			{"id":111,"isrc":"GBDUW0000059"},
			{"id":222,"isrc":"USXX00000000"},
			{"id":333,"isrc":"GBDUW0000059"}
		]}}}`)
	})

	ids := c.IDsForISRC("GBDUW0000059")
	assert.Equal(t, []string{"111", "333"}, ids)
}

func TestIDsForISRCFailuresYieldEmptySet(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		assert.Nil(t, c.IDsForISRC("GBDUW0000059"))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "not json")
		})
		assert.Nil(t, c.IDsForISRC("GBDUW0000059"))
	})

	t.Run("no overlap", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"data":{"tracks":{"items":[{"id":1,"isrc":"OTHER"}]}}}`)
		})
		assert.Nil(t, c.IDsForISRC("GBDUW0000059"))
	})
}
