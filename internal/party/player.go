package party

// PlayerState mirrors the external player's coarse playback state.
type PlayerState int

const (
	StateUnstarted PlayerState = iota
	StatePlaying
	StatePaused
	StateBuffering
	StateEnded
	StateCued
)

// Player is the control surface of the external video player. Calls are
// fire-and-forget; outcomes arrive on the event stream.
type Player interface {
	LoadVideo(id string)
	LoadPlaylist(listID string, index int)
	Play()
	Mute()
	Unmute()

	// Position probes for the stuck-track check.
	State() PlayerState
	Duration() float64
	Position() float64

	// Playlist introspection while a playlist is current. Size zero means
	// the player could not report its internal playlist.
	PlaylistSize() int
	PlaylistIndex() int

	// NextVideo skips inside the current playlist; false when the player
	// has nothing left to skip to.
	NextVideo() bool
}

type EventKind int

const (
	EventReady EventKind = iota
	EventEnded
	EventError
)

// Event is a notification from the external player. Code carries the
// player's error code for EventError.
type Event struct {
	Kind EventKind
	Code int
}
