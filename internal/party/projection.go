// Package party drives the venue-facing autoplay display: it projects the
// canonical queue into playable items, polls the queue API, and runs the
// playback scheduler against an external player.
package party

import (
	"sort"

	"github.com/Manuele79/dj-requests/internal/platform"
	"github.com/Manuele79/dj-requests/internal/request"
)

type Kind string

const (
	KindVideo    Kind = "video"
	KindPlaylist Kind = "playlist"
)

// PlayableItem is a RequestItem the scheduler can drive. It is recomputed
// from scratch on every queue refresh and never mutated in place.
type PlayableItem struct {
	request.RequestItem

	Kind   Kind   `json:"kind"`
	Key    string `json:"key"`
	ListID string `json:"listId,omitempty"`
}

// BuildProjection filters the canonical queue down to the YouTube items the
// player can handle and ranks them votes desc, updatedAt desc. Playlists
// without an extractable list id are kept (displayed, reported unplayable);
// video items without an id are dropped as malformed.
func BuildProjection(items []request.RequestItem) []PlayableItem {
	out := make([]PlayableItem, 0, len(items))
	for _, r := range items {
		if r.Platform != platform.YouTube {
			continue
		}
		isPlaylist := platform.IsPlaylist(r.URL, r.Platform) && r.YouTubeVideoID == ""
		switch {
		case isPlaylist:
			listID := platform.ExtractListID(r.URL)
			key := "list:" + listID
			if listID == "" {
				key = "list:" + r.ID
			}
			out = append(out, PlayableItem{
				RequestItem: r,
				Kind:        KindPlaylist,
				Key:         key,
				ListID:      listID,
			})
		case r.YouTubeVideoID != "":
			out = append(out, PlayableItem{
				RequestItem: r,
				Kind:        KindVideo,
				Key:         r.YouTubeVideoID,
			})
		}
	}
	sortRanked(out)
	return out
}

// DisplayQueue extracts the display-only items for a platform (Spotify in
// the party view), same ranking as the playable queue.
func DisplayQueue(items []request.RequestItem, p platform.Platform) []request.RequestItem {
	out := make([]request.RequestItem, 0)
	for _, r := range items {
		if r.Platform == p && r.URL != "" {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Votes != out[j].Votes {
			return out[i].Votes > out[j].Votes
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func sortRanked(items []PlayableItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Votes != items[j].Votes {
			return items[i].Votes > items[j].Votes
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
}

func findByKey(items []PlayableItem, key string) (PlayableItem, int) {
	for i, it := range items {
		if it.Key == key {
			return it, i
		}
	}
	return PlayableItem{}, -1
}
