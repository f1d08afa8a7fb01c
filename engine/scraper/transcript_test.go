package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vidsage/vidsage/engine/domain"
)

// urlRewriter redirects every outgoing request to a local test server.
type urlRewriter struct {
	target string
}

func (u *urlRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	req2.URL.Scheme = "http"
	req2.URL.Host = u.target[len("http://"):]
	return http.DefaultTransport.RoundTrip(req2)
}

func playerResponse(tracks []captionTrack) []byte {
	b, _ := json.Marshal(map[string]any{
		"playabilityStatus": map[string]any{"status": "OK"},
		"captions": map[string]any{
			"playerCaptionsTracklistRenderer": map[string]any{
				"captionTracks": tracks,
			},
		},
	})
	return b
}

func TestFetch_LegacyFormat(t *testing.T) {
	transcript := `<transcript><text start="0" dur="5">hello world this is a long enough caption body for the size check to pass</text></transcript>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write(playerResponse([]captionTrack{{BaseURL: "https://www.youtube.com/api/timedtext?v=x", Lang: "en"}}))
			return
		}
		w.Write([]byte(transcript))
	}))
	defer srv.Close()

	f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
	got, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(got, "hello world") {
		t.Errorf("unexpected transcript: %q", got)
	}
}

func TestFetch_Srv3Format(t *testing.T) {
	transcript := `<timedtext><body><p t="0" d="5">first paragraph of the caption body with plenty of text</p><p t="5" d="5">second paragraph</p></body></timedtext>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write(playerResponse([]captionTrack{{BaseURL: "https://www.youtube.com/api/timedtext?v=x", Lang: "en"}}))
			return
		}
		w.Write([]byte(transcript))
	}))
	defer srv.Close()

	f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
	got, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(got, "first paragraph") || !strings.Contains(got, "second paragraph") {
		t.Errorf("unexpected transcript: %q", got)
	}
}

func TestFetch_NoCaptions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(playerResponse(nil))
	}))
	defer srv.Close()

	f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
	_, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
	if !errors.Is(err, domain.ErrNoContent) {
		t.Fatalf("Fetch error = %v, want ErrNoContent", err)
	}
}

func TestFetch_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusForbidden, domain.ErrForbidden},
		{http.StatusNotFound, domain.ErrNotAccessible},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
		_, err := f.Fetch(context.Background(), "dQw4w9WgXcQ")
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: error = %v, want %v", tt.status, err, tt.want)
		}
		srv.Close()
	}
}

func TestFetch_UnplayableVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := json.Marshal(map[string]any{
			"playabilityStatus": map[string]any{"status": "ERROR", "reason": "Video unavailable"},
		})
		w.Write(b)
	}))
	defer srv.Close()

	f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
	_, err := f.Fetch(context.Background(), "badbadbadba")
	if !errors.Is(err, domain.ErrNotAccessible) {
		t.Fatalf("Fetch error = %v, want ErrNotAccessible", err)
	}
}

func TestFetch_PrefersManualEnglish(t *testing.T) {
	var gotPath string
	transcript := `<transcript><text start="0" dur="5">manual captions win over automatically generated captions every single time</text></transcript>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.Write(playerResponse([]captionTrack{
				{BaseURL: "https://www.youtube.com/api/timedtext?track=asr", Lang: "en", Kind: "asr"},
				{BaseURL: "https://www.youtube.com/api/timedtext?track=manual", Lang: "en"},
			}))
			return
		}
		gotPath = r.URL.RawQuery
		w.Write([]byte(transcript))
	}))
	defer srv.Close()

	f := NewFetcher(&http.Client{Transport: &urlRewriter{target: srv.URL}})
	if _, err := f.Fetch(context.Background(), "dQw4w9WgXcQ"); err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(gotPath, "track=manual") {
		t.Errorf("fetched %q, want manual track first", gotPath)
	}
}

func TestCleanTranscript(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"[Music] hello  world [Applause]", "hello world"},
		{"it&#39;s a &amp; b", "it's a & b"},
		{"  lots   of   spaces  ", "lots of spaces"},
		{"[Laughter] test [Inaudible] end", "test end"},
		{"&lt;tag&gt; &quot;quoted&quot;", `<tag> "quoted"`},
	}
	for _, tt := range tests {
		got := CleanTranscript(tt.in)
		if got != tt.want {
			t.Errorf("CleanTranscript(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
