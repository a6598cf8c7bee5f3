package title

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/Manuele79/dj-requests/internal/platform"
)

// RoundTripFunc lets tests stub the oEmbed endpoints.
type RoundTripFunc func(req *http.Request) *http.Response

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func newTestResolver(fn RoundTripFunc) *Resolver {
	r := NewResolver()
	r.http = &http.Client{Transport: fn}
	return r
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestResolveKeepsRealTitle(t *testing.T) {
	r := newTestResolver(func(req *http.Request) *http.Response {
		t.Errorf("unexpected lookup for non-generic title: %s", req.URL)
		return jsonResponse(500, "")
	})
	got := r.Resolve(context.Background(), "My Song", "https://youtu.be/abc", platform.YouTube)
	if got != "My Song" {
		t.Errorf("Resolve = %q; want My Song", got)
	}
}

func TestResolveLookup(t *testing.T) {
	tests := []struct {
		name     string
		platform platform.Platform
		respond  func(req *http.Request) *http.Response
		want     string
	}{
		{
			name:     "youtube success",
			platform: platform.YouTube,
			respond: func(req *http.Request) *http.Response {
				if !strings.Contains(req.URL.Host, "youtube.com") {
					return jsonResponse(404, "")
				}
				return jsonResponse(200, `{"title":"  Never Gonna Give You Up "}`)
			},
			want: "Never Gonna Give You Up",
		},
		{
			name:     "spotify success",
			platform: platform.Spotify,
			respond: func(req *http.Request) *http.Response {
				return jsonResponse(200, `{"title":"Track Name"}`)
			},
			want: "Track Name",
		},
		{
			name:     "non-200 falls back",
			platform: platform.YouTube,
			respond: func(req *http.Request) *http.Response {
				return jsonResponse(503, "nope")
			},
			want: "Richiesta YouTube",
		},
		{
			name:     "malformed payload falls back",
			platform: platform.Spotify,
			respond: func(req *http.Request) *http.Response {
				return jsonResponse(200, "{not json")
			},
			want: "Richiesta Spotify",
		},
		{
			name:     "empty title falls back",
			platform: platform.YouTube,
			respond: func(req *http.Request) *http.Response {
				return jsonResponse(200, `{"title":""}`)
			},
			want: "Richiesta YouTube",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestResolver(tt.respond)
			got := r.Resolve(context.Background(), "", "https://example.link/x", tt.platform)
			if got != tt.want {
				t.Errorf("Resolve = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestResolveNoLookupPlatforms(t *testing.T) {
	r := newTestResolver(func(req *http.Request) *http.Response {
		t.Errorf("unexpected lookup for platform without oEmbed: %s", req.URL)
		return jsonResponse(500, "")
	})
	if got := r.Resolve(context.Background(), "", "https://music.apple.com/x", platform.Apple); got != "Richiesta Apple Music" {
		t.Errorf("apple fallback = %q", got)
	}
	if got := r.Resolve(context.Background(), "richiesta", "https://music.amazon.it/x", platform.Amazon); got != "Richiesta Amazon Music" {
		t.Errorf("amazon fallback = %q", got)
	}
	if got := r.Resolve(context.Background(), "", "https://somewhere.else/x", platform.Other); got != "Richiesta" {
		t.Errorf("other fallback = %q", got)
	}
}

func TestResolveBareTitle(t *testing.T) {
	r := NewResolver()
	if got := r.Resolve(context.Background(), "Canzone Mia", "", platform.Other); got != "Canzone Mia" {
		t.Errorf("bare title = %q; want Canzone Mia", got)
	}
	if got := r.Resolve(context.Background(), "  ", "", platform.Other); got != "Richiesta" {
		t.Errorf("empty everything = %q; want Richiesta", got)
	}
}

func TestPlaylistLabel(t *testing.T) {
	if got := PlaylistLabel(platform.YouTube); got != "Playlist YouTube" {
		t.Errorf("youtube playlist label = %q", got)
	}
	if got := PlaylistLabel(platform.Spotify); got != "Playlist Spotify" {
		t.Errorf("spotify playlist label = %q", got)
	}
}
