package scraper

import (
	"fmt"
	"regexp"

	"github.com/vidsage/vidsage/engine/domain"
)

// YouTube video IDs are always 11 characters of [0-9A-Za-z_-].
var videoIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:v=|/)([0-9A-Za-z_-]{11})(?:[&?#].*)?$`),
	regexp.MustCompile(`youtu\.be/([0-9A-Za-z_-]{11})`),
	regexp.MustCompile(`^([0-9A-Za-z_-]{11})$`),
}

// ExtractVideoID normalizes the many YouTube URL shapes (watch?v=,
// youtu.be/, embed/, m.youtube.com, or a bare 11-char id) down to the
// video ID. The ID is the stable key for catalog and vector store.
func ExtractVideoID(rawURL string) (string, error) {
	for _, pat := range videoIDPatterns {
		if m := pat.FindStringSubmatch(rawURL); m != nil {
			return m[1], nil
		}
	}
	return "", fmt.Errorf("%w: could not extract a video id from %q", domain.ErrNotAccessible, rawURL)
}
