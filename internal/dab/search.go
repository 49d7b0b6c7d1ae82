package dab

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Track is a DAB catalog search result. IDs come back numeric from the
// API but are treated as opaque strings everywhere else.
type Track struct {
	ID           json.Number `json:"id"`
	Title        string      `json:"title"`
	Artist       string      `json:"artist"`
	ArtistID     json.Number `json:"artistId"`
	AlbumTitle   string      `json:"albumTitle"`
	AlbumCover   string      `json:"albumCover"`
	AlbumID      json.Number `json:"albumId"`
	ReleaseDate  string      `json:"releaseDate"`
	Genre        string      `json:"genre"`
	Duration     int         `json:"duration"`
	AudioQuality struct {
		SampleRate int  `json:"maximumSampleRate"`
		BitDepth   int  `json:"maximumBitDepth"`
		IsHiRes    bool `json:"isHiRes"`
	} `json:"audioQuality"`
}

// Search runs a free-text track query (a raw ISRC string or an
// "artist title" string). Transport failures and non-2xx responses are
// returned as errors so tests can tell them from zero results; every
// caller in the matching path treats both the same way.
func (c *Client) Search(query string) ([]Track, error) {
	searchURL := fmt.Sprintf("%s/search?q=%s&type=track", c.BaseURL, url.QueryEscape(query))

	req, err := http.NewRequest("GET", searchURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Path: "/search"}
	}

	var result struct {
		Tracks []Track `json:"tracks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	// Validate candidate shape at the boundary: entries without a
	// stable ID or a title are unusable downstream.
	valid := result.Tracks[:0]
	for _, t := range result.Tracks {
		if t.ID.String() == "" || t.Title == "" {
			continue
		}
		valid = append(valid, t)
	}
	return valid, nil
}
