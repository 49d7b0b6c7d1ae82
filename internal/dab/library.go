package dab

import (
	"fmt"

	"dabhounds/internal/models"
)

// CreateLibrary creates a new public library on DAB and returns its ID.
func (c *Client) CreateLibrary(name, description string, isPublic bool) (string, error) {
	payload := map[string]interface{}{
		"name":        name,
		"description": description,
		"isPublic":    isPublic,
	}

	var result struct {
		Library struct {
			ID string `json:"id"`
		} `json:"library"`
	}

	if err := c.DoRequest("POST", "/libraries", payload, &result); err != nil {
		return "", err
	}
	return result.Library.ID, nil
}

// AddTrack adds a fully-described track to a library. The schema must
// mirror what the DAB frontend posts, audioQuality included.
func (c *Client) AddTrack(libraryID string, track Track) error {
	payload := map[string]interface{}{
		"track": map[string]interface{}{
			"id":          track.ID.String(),
			"title":       track.Title,
			"artist":      track.Artist,
			"artistId":    track.ArtistID.String(),
			"albumTitle":  track.AlbumTitle,
			"albumCover":  track.AlbumCover,
			"albumId":     track.AlbumID.String(),
			"releaseDate": track.ReleaseDate,
			"genre":       track.Genre,
			"duration":    track.Duration,
			"audioQuality": map[string]interface{}{
				"maximumBitDepth":     track.AudioQuality.BitDepth,
				"maximumSamplingRate": track.AudioQuality.SampleRate,
				"isHiRes":             track.AudioQuality.IsHiRes,
			},
		},
	}

	return c.DoRequest("POST", fmt.Sprintf("/libraries/%s/tracks", libraryID), payload, nil)
}

// LibraryExists reports whether a library is still present on DAB.
// Only a conclusive 404 counts as "gone"; any other failure is returned
// as an error so callers do not reset sync state on a flaky network.
func (c *Client) LibraryExists(id string) (bool, error) {
	var result struct {
		Library models.LibraryInfo `json:"library"`
	}
	err := c.DoRequest("GET", fmt.Sprintf("/libraries/%s", id), nil, &result)
	if err == nil {
		return true, nil
	}
	if apiErr, ok := err.(*APIError); ok && apiErr.Status == 404 {
		return false, nil
	}
	return false, err
}

// LibraryInfo fetches the current name/description of a library.
func (c *Client) LibraryInfo(id string) (*models.LibraryInfo, error) {
	var result struct {
		Library models.LibraryInfo `json:"library"`
	}
	if err := c.DoRequest("GET", fmt.Sprintf("/libraries/%s", id), nil, &result); err != nil {
		return nil, err
	}
	return &result.Library, nil
}

// LibraryTracks fetches all tracks currently in a DAB library.
func (c *Client) LibraryTracks(libraryID string) ([]Track, error) {
	var result struct {
		Tracks []Track `json:"tracks"`
	}
	if err := c.DoRequest("GET", fmt.Sprintf("/libraries/%s/tracks", libraryID), nil, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch library tracks: %w", err)
	}
	return result.Tracks, nil
}
