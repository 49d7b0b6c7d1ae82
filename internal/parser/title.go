package parser

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	// Noise reduction regex for video titles
	noiseRegex = regexp.MustCompile(`(?i)\((official video|official audio|audio|video|lyrics|visualizer|HD|Remaster(ed)?)\)|\[(official video|official audio|audio|video|lyrics|visualizer|HD|Remaster(ed)?)\]`)
	featRegex  = regexp.MustCompile(`(?i)\bfeat\.?\b`)
	spaceRegex = regexp.MustCompile(`\s{2,}`)
	splitRegex = regexp.MustCompile(`\s+[-–—|:]\s+`)
)

// NormalizeTitle turns a raw video title plus uploader name into an
// (artist, title) pair: strip noise markers, canonicalize "feat.",
// split on the first separator, and guess which side is the artist.
// Without a usable split the uploader stands in as artist.
func NormalizeTitle(rawTitle, uploader string) (string, string) {
	t := rawTitle
	t = noiseRegex.ReplaceAllString(t, "")
	t = featRegex.ReplaceAllString(t, "ft.")
	t = spaceRegex.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	parts := splitRegex.Split(t, 2)
	if len(parts) == 2 {
		left, right := parts[0], parts[1]
		if looksLikeArtist(left, right) {
			return capWords(left), capWords(right)
		}
		return capWords(right), capWords(left)
	}

	if uploader != "" {
		return capWords(uploader), capWords(t)
	}
	return "", capWords(t)
}

// looksLikeArtist: the left side is an artist when it carries feature
// credits or a comma list, or when it is short (<=4 words) against a
// longer right side.
func looksLikeArtist(left, right string) bool {
	leftLower := strings.ToLower(left)
	if strings.Contains(left, ",") || strings.Contains(leftLower, "ft.") || strings.Contains(leftLower, "feat.") {
		return true
	}
	return len(strings.Fields(left)) <= 4 && len(strings.Fields(right)) >= 2
}

// capWords capitalizes each word but keeps short all-caps tokens
// (acronyms like DJ or MC) as they are.
func capWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == strings.ToUpper(w) && len(w) <= 4 {
			continue
		}
		words[i] = capitalize(strings.ToLower(w))
	}
	return strings.Join(words, " ")
}

func capitalize(w string) string {
	runes := []rune(w)
	if len(runes) == 0 {
		return w
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
