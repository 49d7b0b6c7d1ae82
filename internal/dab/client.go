package dab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/1337.0.0.0 Safari/537.36"

	DefaultAPIBase = "https://dabmusic.xyz/api"

	// 15 requests per 10 seconds, enforced across every outbound
	// DAB call: search, library create, track add, existence check.
	minRequestInterval = 666 * time.Millisecond
)

// Client talks to the DAB API. The embedded limiter is the single
// throttle shared by all callers holding this client; pass the client
// around as a handle instead of constructing a second one.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Limiter    *rate.Limiter
	Token      string
}

func NewClient(token string) *Client {
	return &Client{
		BaseURL:    DefaultAPIBase,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Limiter:    rate.NewLimiter(rate.Every(minRequestInterval), 1),
		Token:      token,
	}
}

// Do waits on the shared rate limiter, then performs the request with
// the session headers the DAB frontend sends.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if err := c.Limiter.Wait(context.Background()); err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Cookie", fmt.Sprintf("session=%s", c.Token))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	return c.HTTPClient.Do(req)
}

// DoRequest is a high-level helper handling JSON body encoding/decoding.
func (c *Client) DoRequest(method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return err
		}
		bodyReader = bytes.NewBuffer(jsonBytes)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		return err
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Path: path}
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// APIError is a non-2xx response from the DAB API.
type APIError struct {
	Status int
	Path   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("DAB API error: status %d on %s", e.Status, e.Path)
}
