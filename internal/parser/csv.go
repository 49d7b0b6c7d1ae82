package parser

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"dabhounds/internal/models"
)

// canonical header mapping
var headerAliases = map[string]string{
	"title":       "title",
	"track":       "title",
	"track_title": "title",
	"name":        "title",

	"artist":      "artist",
	"artist_name": "artist",
	"performer":   "artist",

	"album":       "album",
	"album_title": "album",

	"isrc": "isrc",

	"spotify":           "spotify",
	"spotify_uri":       "spotify",
	"spotify_track_uri": "spotify",
	"uri":               "spotify",
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ParseCSVFile reads track descriptors from a CSV export, matching
// columns by their recognized header aliases.
func ParseCSVFile(path string) ([]models.Track, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	tracks, err := ParseCSV(f)
	if err != nil {
		return nil, "", err
	}
	return tracks, filepath.Base(path), nil
}

func ParseCSV(r io.Reader) ([]models.Track, error) {
	reader := csv.NewReader(r)

	rawHeaders, err := reader.Read()
	if err != nil {
		return nil, err
	}

	columnMap := make(map[int]string)
	for i, h := range rawHeaders {
		if canonical, ok := headerAliases[normalizeHeader(h)]; ok {
			columnMap[i] = canonical
		}
	}
	if len(columnMap) == 0 {
		return nil, errors.New("CSV has no recognizable columns")
	}

	var tracks []models.Track
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var t models.Track
		t.Type = models.SourceCSV

		for i, v := range record {
			field, ok := columnMap[i]
			if !ok {
				continue
			}
			val := strings.TrimSpace(v)
			if val == "" {
				continue
			}

			switch field {
			case "title":
				t.Title = val
			case "artist":
				t.Artist = val
			case "album":
				t.Album = val
			case "isrc":
				t.ISRC = val
			case "spotify":
				if strings.HasPrefix(val, "spotify:track:") {
					t.SourceID = strings.TrimPrefix(val, "spotify:track:")
					t.Type = models.SourceSpotify
				}
			}
		}

		// Skip totally empty rows
		if t.Title == "" && t.Artist == "" && t.SourceID == "" {
			continue
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}
