package request

import (
	"strings"
	"time"

	"github.com/Manuele79/dj-requests/internal/platform"
)

// RequestItem is one submitted song/link, owned by the aggregation engine.
// For a given event at most one item exists per youtube video id; other
// platforms and playlists always insert fresh rows.
type RequestItem struct {
	ID             string            `json:"id"`
	EventCode      string            `json:"eventCode"`
	Title          string            `json:"title"`
	URL            string            `json:"url"`
	Platform       platform.Platform `json:"platform"`
	YouTubeVideoID string            `json:"youtubeVideoId"`
	Dedication     string            `json:"dedication,omitempty"`
	Votes          int               `json:"votes"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
}

// Event is a short-lived session keyed by its uppercase code.
// Re-creating an event resets its expiry to 12 hours from now.
type Event struct {
	EventCode string    `json:"eventCode"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (e *Event) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

const (
	// EventTTL is how long an event accepts and displays requests.
	EventTTL = 12 * time.Hour
	// BrowseWindow caps list queries to recent requests regardless of
	// the event's own expiry.
	BrowseWindow = 12 * time.Hour
	// ListLimit bounds one page of the ranked queue.
	ListLimit = 200
	// DedicationMax caps the free-text dedication.
	DedicationMax = 180
)

// NormalizeEventCode makes codes case-insensitive by storing them uppercase.
func NormalizeEventCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type SubmitInput struct {
	EventCode  string `json:"eventCode"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	Dedication string `json:"dedication"`
}

// apiError carries the HTTP status a failure maps to.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string {
	return e.msg
}
