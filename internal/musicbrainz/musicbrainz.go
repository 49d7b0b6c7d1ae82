// Package musicbrainz resolves canonical (title, artist) metadata for
// the lenient matching path. Best-effort only: every failure comes back
// as a nil result.
package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const DefaultAPIBase = "https://musicbrainz.org/ws/2"

// MusicBrainz requires a descriptive User-Agent.
const userAgent = "DABHounds/1.0 (https://github.com/sherlockholmesat221b/DABHounds; sherlockholmesat221b@proton.me)"

type Metadata struct {
	Title      string
	Artist     string
	ISRC       string
	DurationMS int
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	limiter    *rate.Limiter
}

func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultAPIBase,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		// 1 req/s per MB guidelines
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

type recordingResponse struct {
	Recordings []struct {
		Title        string   `json:"title"`
		Score        int      `json:"score"`
		Length       int      `json:"length"`
		ISRCs        []string `json:"isrcs"`
		ArtistCredit []struct {
			Name string `json:"name"`
		} `json:"artist-credit"`
	} `json:"recordings"`
}

// Resolve searches MusicBrainz recordings for the given title/artist
// and returns canonical metadata, or nil when nothing usable came back.
func (c *Client) Resolve(title, artist string) *Metadata {
	_ = c.limiter.Wait(context.Background())

	query := fmt.Sprintf("artist:%q AND recording:%q", artist, title)
	searchURL := fmt.Sprintf("%s/recording?query=%s&fmt=json&limit=1&inc=isrcs", c.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequest("GET", searchURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTPClient.Do(req)
	if err != nil || resp.StatusCode != 200 {
		if resp != nil {
			resp.Body.Close()
		}
		return nil
	}
	defer resp.Body.Close()

	var res recordingResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil
	}
	if len(res.Recordings) == 0 {
		return nil
	}

	rec := res.Recordings[0]
	meta := &Metadata{Title: rec.Title, DurationMS: rec.Length}
	if len(rec.ArtistCredit) > 0 {
		meta.Artist = rec.ArtistCredit[0].Name
	}
	if len(rec.ISRCs) > 0 {
		meta.ISRC = rec.ISRCs[0]
	}
	if meta.Title == "" || meta.Artist == "" {
		return nil
	}
	return meta
}
