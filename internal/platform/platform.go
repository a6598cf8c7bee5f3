// Package platform classifies submitted links by streaming platform and
// extracts the identifiers used for queue deduplication and playback.
package platform

import (
	"net/url"
	"strings"
)

// Platform is the source service a link points at. The set is closed:
// anything unrecognized is Other.
type Platform string

const (
	YouTube Platform = "youtube"
	Spotify Platform = "spotify"
	Apple   Platform = "apple"
	Amazon  Platform = "amazon"
	Other   Platform = "other"
)

// Known reports whether p is one of the defined platforms.
func Known(p Platform) bool {
	switch p {
	case YouTube, Spotify, Apple, Amazon, Other:
		return true
	}
	return false
}

// Detect matches known domains in fixed priority order. An empty or
// unrecognized URL maps to Other.
func Detect(rawURL string) Platform {
	u := strings.ToLower(rawURL)
	switch {
	case strings.Contains(u, "youtube.com") || strings.Contains(u, "youtu.be"):
		return YouTube
	case strings.Contains(u, "spotify.com"):
		return Spotify
	case strings.Contains(u, "music.apple.com") || strings.Contains(u, "itunes.apple.com"):
		return Apple
	case strings.Contains(u, "music.amazon") || strings.Contains(u, "amazon."):
		return Amazon
	default:
		return Other
	}
}

// ExtractVideoID pulls the single-video id out of a YouTube URL.
// youtu.be links carry it as the first path segment; youtube.com prefers
// the v query parameter, then /shorts/<id>, then /embed/<id>.
// Malformed URLs yield "" without an error.
func ExtractVideoID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")

	if host == "youtu.be" {
		for _, seg := range strings.Split(u.Path, "/") {
			if seg != "" {
				return seg
			}
		}
		return ""
	}

	if strings.HasSuffix(host, "youtube.com") {
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		parts := splitPath(u.Path)
		for i, p := range parts {
			if (p == "shorts" || p == "embed") && i+1 < len(parts) {
				return parts[i+1]
			}
		}
	}
	return ""
}

// IsPlaylist reports whether the URL identifies a playlist rather than a
// single track. Playlist identity takes precedence over a video id.
func IsPlaylist(rawURL string, p Platform) bool {
	switch p {
	case YouTube:
		if u, err := url.Parse(strings.TrimSpace(rawURL)); err == nil && u.Query().Get("list") != "" {
			return true
		}
		return strings.Contains(strings.ToLower(rawURL), "list=")
	case Spotify:
		return strings.Contains(strings.ToLower(rawURL), "/playlist/")
	}
	return false
}

// ExtractListID returns the YouTube playlist id, or "" if none is present
// or the URL does not parse.
func ExtractListID(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return u.Query().Get("list")
}

// Classify derives the full fingerprint of a submitted link: platform,
// single-video id and playlist flag. When the URL is a playlist the video
// id is left empty even if one could be extracted.
func Classify(rawURL string) (p Platform, videoID string, playlist bool) {
	p = Detect(rawURL)
	playlist = IsPlaylist(rawURL, p)
	if p == YouTube && !playlist {
		videoID = ExtractVideoID(rawURL)
	}
	return p, videoID, playlist
}

func splitPath(p string) []string {
	var out []string
	for _, seg := range strings.Split(p, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}
