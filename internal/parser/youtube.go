package parser

import (
	"fmt"

	"github.com/kkdai/youtube/v2"

	"dabhounds/internal/models"
)

// ParseYouTube extracts track descriptors from a YouTube playlist or
// video URL. Raw video titles go through the normalization heuristics
// to recover an artist/title split.
func ParseYouTube(url string) ([]models.Track, string, error) {
	client := youtube.Client{}

	// Try to parse as a playlist first.
	playlist, err := client.GetPlaylist(url)
	if err == nil {
		var tracks []models.Track
		for _, entry := range playlist.Videos {
			artist, title := NormalizeTitle(entry.Title, entry.Author)
			tracks = append(tracks, models.Track{
				Title:    title,
				Artist:   artist,
				SourceID: entry.ID,
				Type:     models.SourceYouTube,
			})
		}
		return tracks, playlist.Title, nil
	}

	// Fallback: a single video.
	video, err := client.GetVideo(url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse YouTube URL: %w", err)
	}

	artist, title := NormalizeTitle(video.Title, video.Author)
	tracks := []models.Track{{
		Title:    title,
		Artist:   artist,
		SourceID: video.ID,
		Type:     models.SourceYouTube,
	}}
	return tracks, video.Title, nil
}
