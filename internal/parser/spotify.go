package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"

	"dabhounds/internal/models"
	"dabhounds/internal/spotifetch"
)

type SpotifyParser struct {
	fetch  *spotifetch.Client
	client *spotify.Client
}

// NewSpotifyParser builds a parser that tries the tokenless spotifetch
// path first and falls back to the official Web API client; client may
// be nil when no application credentials are configured.
func NewSpotifyParser(client *spotify.Client) *SpotifyParser {
	return &SpotifyParser{fetch: spotifetch.NewClient(), client: client}
}

// Parse extracts track descriptors from a Spotify playlist, album or
// track URL.
func (p *SpotifyParser) Parse(ctx context.Context, url string) ([]models.Track, string, error) {
	id, mediaType, err := parseSpotifyURL(url)
	if err != nil {
		return nil, "", err
	}

	if tracks, name, err := p.parseViaFetch(id, mediaType); err == nil {
		return tracks, name, nil
	}

	if p.client == nil {
		return nil, "", fmt.Errorf("spotify metadata fetch failed and no API credentials configured")
	}

	switch mediaType {
	case "playlist":
		return p.handlePlaylist(ctx, spotify.ID(id))
	case "album":
		return p.handleAlbum(ctx, spotify.ID(id))
	case "track":
		return p.handleTrack(ctx, spotify.ID(id))
	}
	return nil, "", fmt.Errorf("unsupported spotify type: %s", mediaType)
}

func (p *SpotifyParser) parseViaFetch(id, mediaType string) ([]models.Track, string, error) {
	switch mediaType {
	case "playlist":
		infos, name, err := p.fetch.Playlist(id)
		if err != nil {
			return nil, "", err
		}
		return infosToTracks(infos), name, nil
	case "album":
		infos, name, err := p.fetch.Album(id)
		if err != nil {
			return nil, "", err
		}
		return infosToTracks(infos), name, nil
	case "track":
		info, err := p.fetch.Track(id)
		if err != nil {
			return nil, "", err
		}
		return infosToTracks([]spotifetch.TrackInfo{*info}), info.Name, nil
	}
	return nil, "", fmt.Errorf("unsupported spotify type: %s", mediaType)
}

func infosToTracks(infos []spotifetch.TrackInfo) []models.Track {
	tracks := make([]models.Track, 0, len(infos))
	for _, t := range infos {
		tracks = append(tracks, models.Track{
			Title:    t.Name,
			Artist:   t.Artists,
			Album:    t.AlbumName,
			ISRC:     t.ISRC,
			Duration: t.DurationMS / 1000,
			SourceID: t.SpotifyID,
			Type:     models.SourceSpotify,
		})
	}
	return tracks
}

func (p *SpotifyParser) handlePlaylist(ctx context.Context, id spotify.ID) ([]models.Track, string, error) {
	res, err := p.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get playlist: %w", err)
	}

	var tracks []models.Track
	trackPage := res.Tracks
	for {
		for _, item := range trackPage.Tracks {
			if item.Track.ID != "" && !item.IsLocal {
				tracks = append(tracks, transform(item.Track))
			}
		}

		err = p.client.NextPage(ctx, &trackPage)
		if err == spotify.ErrNoMorePages {
			break
		}
		if err != nil {
			return tracks, res.Name, fmt.Errorf("playlist pagination error: %w", err)
		}
	}
	return tracks, res.Name, nil
}

func (p *SpotifyParser) handleAlbum(ctx context.Context, id spotify.ID) ([]models.Track, string, error) {
	res, err := p.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get album: %w", err)
	}

	var ids []spotify.ID
	for _, t := range res.Tracks.Tracks {
		ids = append(ids, t.ID)
	}

	// Album listings omit external IDs; full track objects carry the
	// ISRC and come 50 at a time.
	var tracks []models.Track
	for i := 0; i < len(ids); i += 50 {
		end := i + 50
		if end > len(ids) {
			end = len(ids)
		}
		fullTracks, err := p.client.GetTracks(ctx, ids[i:end])
		if err != nil {
			return nil, "", fmt.Errorf("get full tracks for album: %w", err)
		}
		for _, ft := range fullTracks {
			tracks = append(tracks, transform(*ft))
		}
	}
	return tracks, res.Name, nil
}

func (p *SpotifyParser) handleTrack(ctx context.Context, id spotify.ID) ([]models.Track, string, error) {
	res, err := p.client.GetTrack(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("get track: %w", err)
	}
	return []models.Track{transform(*res)}, res.Name, nil
}

func parseSpotifyURL(urlStr string) (string, string, error) {
	for _, mediaType := range []string{"playlist", "album", "track"} {
		marker := "/" + mediaType + "/"
		if idx := strings.Index(urlStr, marker); idx != -1 {
			id := urlStr[idx+len(marker):]
			id = strings.SplitN(id, "?", 2)[0]
			id = strings.SplitN(id, "/", 2)[0]
			if id == "" {
				return "", "", fmt.Errorf("no %s ID in URL", mediaType)
			}
			return id, mediaType, nil
		}
	}
	return "", "", fmt.Errorf("could not identify media type from URL")
}

func transform(st spotify.FullTrack) models.Track {
	artists := make([]string, len(st.Artists))
	for i, a := range st.Artists {
		artists[i] = a.Name
	}

	return models.Track{
		Title:    st.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    st.Album.Name,
		ISRC:     st.ExternalIDs["isrc"],
		Duration: int(st.Duration) / 1000,
		Type:     models.SourceSpotify,
		SourceID: string(st.ID),
	}
}
