// Package title resolves display titles for submitted links via the
// platforms' oEmbed endpoints, falling back to generic labels when the
// lookup fails or the platform has no endpoint.
package title

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Manuele79/dj-requests/internal/platform"
)

// Lookup is bounded so a slow oEmbed endpoint cannot hold up a submission.
const LookupTimeout = 2500 * time.Millisecond

const (
	genericAny     = "Richiesta"
	genericYouTube = "Richiesta YouTube"
	genericSpotify = "Richiesta Spotify"
	genericApple   = "Richiesta Apple Music"
	genericAmazon  = "Richiesta Amazon Music"
)

type Resolver struct {
	youtubeOEmbed string
	spotifyOEmbed string
	http          *http.Client
}

func NewResolver() *Resolver {
	return &Resolver{
		youtubeOEmbed: "https://www.youtube.com/oembed",
		spotifyOEmbed: "https://open.spotify.com/oembed",
		http: &http.Client{
			Timeout: LookupTimeout,
		},
	}
}

// Generic returns the fallback label for a platform.
func Generic(p platform.Platform) string {
	switch p {
	case platform.YouTube:
		return genericYouTube
	case platform.Spotify:
		return genericSpotify
	case platform.Apple:
		return genericApple
	case platform.Amazon:
		return genericAmazon
	default:
		return genericAny
	}
}

// PlaylistLabel returns the fixed label used for playlist submissions,
// which skip oEmbed lookup entirely.
func PlaylistLabel(p platform.Platform) string {
	if p == platform.Spotify {
		return "Playlist Spotify"
	}
	return "Playlist YouTube"
}

// looksGeneric reports whether the guest-supplied title is empty or one of
// the placeholder labels the submission form pre-fills.
func looksGeneric(title string) bool {
	switch strings.ToLower(title) {
	case "", strings.ToLower(genericAny), strings.ToLower(genericYouTube),
		strings.ToLower(genericSpotify), strings.ToLower(genericApple),
		strings.ToLower(genericAmazon):
		return true
	}
	return false
}

// Resolve returns the best display title for a submission. A real title
// supplied by the guest is kept as-is; generic placeholders trigger an
// oEmbed lookup for platforms that support one. Lookup failure of any kind
// degrades to the platform's generic label and is never surfaced.
func (r *Resolver) Resolve(ctx context.Context, title, rawURL string, p platform.Platform) string {
	t := strings.TrimSpace(title)
	u := strings.TrimSpace(rawURL)
	if u == "" {
		if t != "" {
			return t
		}
		return genericAny
	}
	if !looksGeneric(t) {
		return t
	}

	switch p {
	case platform.YouTube:
		if ot := r.fetchTitle(ctx, r.youtubeOEmbed+"?url="+url.QueryEscape(u)+"&format=json"); ot != "" {
			return ot
		}
		return genericYouTube
	case platform.Spotify:
		if ot := r.fetchTitle(ctx, r.spotifyOEmbed+"?url="+url.QueryEscape(u)); ot != "" {
			return ot
		}
		return genericSpotify
	case platform.Apple:
		return genericApple
	case platform.Amazon:
		return genericAmazon
	default:
		return genericAny
	}
}

// fetchTitle performs one oEmbed call. Timeouts, non-200 responses and
// malformed payloads all collapse to "".
func (r *Resolver) fetchTitle(ctx context.Context, reqURL string) string {
	ctx, cancel := context.WithTimeout(ctx, LookupTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "application/json,text/plain,*/*")

	resp, err := r.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var body struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return ""
	}
	return strings.TrimSpace(body.Title)
}
