// Package qobuz looks up Qobuz track IDs for an ISRC through the
// squid.wtf proxy. Results are used to narrow DAB candidates, whose IDs
// are Qobuz IDs underneath.
package qobuz

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const DefaultAPIBase = "https://eu.qobuz.squid.wtf/api/get-music"

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient() *Client {
	return &Client{
		BaseURL:    DefaultAPIBase,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// IDsForISRC returns the Qobuz track IDs whose ISRC matches exactly.
// Lookup is best-effort: any failure yields an empty set, never an
// error, because callers fall back to the unfiltered candidate list.
func (c *Client) IDsForISRC(isrc string) []string {
	reqURL := fmt.Sprintf("%s?q=%s&offset=0&limit=50", c.BaseURL, url.QueryEscape(isrc))
	resp, err := c.HTTPClient.Get(reqURL)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	var result struct {
		Data struct {
			Tracks struct {
				Items []struct {
					ID   json.Number `json:"id"`
					ISRC string      `json:"isrc"`
				} `json:"items"`
			} `json:"tracks"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil
	}

	var ids []string
	for _, item := range result.Data.Tracks.Items {
		if item.ISRC == isrc {
			ids = append(ids, item.ID.String())
		}
	}
	return ids
}
