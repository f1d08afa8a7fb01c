package scraper

import (
	"errors"
	"testing"

	"github.com/vidsage/vidsage/engine/domain"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42s", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://youtu.be/dQw4w9WgXcQ?si=abc", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/embed/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"dQw4w9WgXcQ", "dQw4w9WgXcQ"},
	}
	for _, tt := range tests {
		got, err := ExtractVideoID(tt.in)
		if err != nil {
			t.Errorf("ExtractVideoID(%q) returned error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ExtractVideoID(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractVideoIDInvalid(t *testing.T) {
	for _, in := range []string{"", "not a url", "https://example.com/page", "short"} {
		_, err := ExtractVideoID(in)
		if err == nil {
			t.Errorf("ExtractVideoID(%q) succeeded, want error", in)
			continue
		}
		if !errors.Is(err, domain.ErrNotAccessible) {
			t.Errorf("ExtractVideoID(%q) error = %v, want ErrNotAccessible", in, err)
		}
	}
}
