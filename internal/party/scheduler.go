package party

import (
	"context"
	"fmt"
	"time"
)

// State is the scheduler's coarse lifecycle state. Error conditions are
// transient: they are reported via the status message and always resolve
// back into an advance.
type State int

const (
	Uninitialized State = iota
	AwaitingGesture
	Ready
	Advancing
	Idle
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case AwaitingGesture:
		return "awaiting-gesture"
	case Ready:
		return "ready"
	case Advancing:
		return "advancing"
	case Idle:
		return "idle"
	}
	return "unknown"
}

// FlagStore persists the per-event "autoplay unlocked" flag so a reload
// does not re-prompt for a gesture.
type FlagStore interface {
	Load(code string) bool
	Save(code string) error
	Clear(code string) error
}

// Status is the scheduler's externally visible snapshot, pushed through
// the notify callback after every transition.
type Status struct {
	State      State  `json:"state"`
	CurrentKey string `json:"currentKey"`
	Title      string `json:"title"`
	Dedication string `json:"dedication"`
	Loop       bool   `json:"loop"`
	Started    bool   `json:"started"`
	Message    string `json:"message"`
}

const (
	// advanceGuard collapses overlapping advance triggers (timer, ended
	// event, manual skip) into one transition.
	advanceGuard = 350 * time.Millisecond
	// stuckTick is how often the stuck-track check probes the player.
	stuckTick = 500 * time.Millisecond
	// stuckEpsilon: position this close to the duration without an ended
	// signal counts as a stuck track.
	stuckEpsilon = 0.7
)

// Scheduler owns all playback state for one party session. Every mutation
// happens on the Run goroutine; external callers only enqueue commands.
type Scheduler struct {
	code   string
	player Player
	events <-chan Event
	flags  FlagStore
	notify func(Status)

	snapshots chan []PlayableItem
	commands  chan func()

	queue      []PlayableItem
	state      State
	currentKey string
	loop       bool
	started    bool
	guardUntil time.Time
	message    string

	now        func() time.Time
	tick       time.Duration
	guardDelay time.Duration
}

func NewScheduler(code string, player Player, events <-chan Event, flags FlagStore, notify func(Status)) *Scheduler {
	s := &Scheduler{
		code:       code,
		player:     player,
		events:     events,
		flags:      flags,
		notify:     notify,
		snapshots:  make(chan []PlayableItem, 1),
		commands:   make(chan func(), 16),
		state:      Uninitialized,
		loop:       true,
		now:        time.Now,
		tick:       stuckTick,
		guardDelay: advanceGuard,
	}
	if flags != nil && flags.Load(code) {
		s.started = true
	}
	return s
}

// Run drives the session until ctx is cancelled or the player event stream
// closes. The stuck-track ticker dies with it, so nothing can act on a
// stale session.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case items := <-s.snapshots:
			s.handleSnapshot(items)
		case ev, ok := <-s.events:
			if !ok {
				return
			}
			s.handleEvent(ev)
		case fn := <-s.commands:
			fn()
		case <-ticker.C:
			s.checkStuck()
		}
	}
}

// UpdateQueue feeds a fresh Playable Projection to the session. A pending
// unconsumed snapshot is replaced, not queued behind.
func (s *Scheduler) UpdateQueue(items []PlayableItem) {
	for {
		select {
		case s.snapshots <- items:
			return
		default:
			select {
			case <-s.snapshots:
			default:
			}
		}
	}
}

// Skip forces an immediate advance, clearing the reentrancy guard.
func (s *Scheduler) Skip() {
	s.do(func() {
		s.guardUntil = time.Time{}
		s.advance("manual")
	})
}

// Select plays an arbitrary queue item, short-circuiting automatic order.
func (s *Scheduler) Select(key string) {
	s.do(func() {
		item, idx := findByKey(s.queue, key)
		if idx < 0 {
			s.setMessage("item no longer in queue")
			return
		}
		s.guardUntil = time.Time{}
		s.playItem(item, "manual pick")
	})
}

// Gesture records the user interaction that unlocks audible autoplay and
// persists it for the event.
func (s *Scheduler) Gesture() {
	s.do(func() { s.handleGesture() })
}

// Reset clears the persisted autoplay flag and restarts from the top of
// the queue, returning to AwaitingGesture.
func (s *Scheduler) Reset() {
	s.do(func() { s.handleReset() })
}

func (s *Scheduler) SetLoop(on bool) {
	s.do(func() {
		s.loop = on
		s.publish()
	})
}

func (s *Scheduler) do(fn func()) {
	s.commands <- fn
}

func (s *Scheduler) handleSnapshot(items []PlayableItem) {
	s.queue = items
	if len(items) == 0 {
		s.publish()
		return
	}
	if s.currentKey == "" {
		s.playItem(items[0], "init")
		return
	}
	// The current item can only vanish through expiry or removal; being
	// outranked never drops it from the projection.
	if _, idx := findByKey(items, s.currentKey); idx < 0 {
		s.playItem(items[0], "refresh")
		return
	}
	s.publish()
}

func (s *Scheduler) handleEvent(ev Event) {
	switch ev.Kind {
	case EventReady:
		if s.started {
			s.player.Unmute()
		} else {
			s.player.Mute()
		}
		s.player.Play()

	case EventEnded:
		cur, idx := findByKey(s.queue, s.currentKey)
		if idx >= 0 && cur.Kind == KindPlaylist {
			size := s.player.PlaylistSize()
			if size == 0 {
				// Cannot read the internal playlist; let the player
				// advance on its own rather than skipping the rest.
				return
			}
			if pi := s.player.PlaylistIndex(); pi >= 0 && pi < size-1 {
				return
			}
		}
		s.guardUntil = time.Time{}
		s.advance("ended")

	case EventError:
		s.setMessage(fmt.Sprintf("player error %d, skipping", ev.Code))
		cur, idx := findByKey(s.queue, s.currentKey)
		if idx >= 0 && cur.Kind == KindPlaylist && s.player.NextVideo() {
			return
		}
		s.guardUntil = time.Time{}
		s.advance(fmt.Sprintf("error-%d", ev.Code))
	}
}

// advance moves to the next ranked item. Guarded: overlapping triggers
// inside the guard window no-op and rely on the next natural trigger.
func (s *Scheduler) advance(reason string) {
	now := s.now()
	if now.Before(s.guardUntil) {
		return
	}
	s.guardUntil = now.Add(s.guardDelay)

	if len(s.queue) == 0 {
		return
	}

	_, idx := findByKey(s.queue, s.currentKey)
	if idx < 0 {
		s.playItem(s.queue[0], reason)
		return
	}
	if idx+1 < len(s.queue) {
		s.playItem(s.queue[idx+1], reason)
		return
	}
	if s.loop {
		s.playItem(s.queue[0], reason)
		return
	}

	s.state = Idle
	s.setMessage("queue exhausted (loop off)")
}

func (s *Scheduler) playItem(item PlayableItem, reason string) {
	if item.Kind == KindPlaylist && item.ListID == "" {
		s.setMessage("playlist not playable (missing list id)")
		return
	}

	s.state = Advancing
	s.currentKey = item.Key

	if s.started {
		s.player.Unmute()
	} else {
		s.player.Mute()
	}

	switch item.Kind {
	case KindPlaylist:
		s.player.LoadPlaylist(item.ListID, 0)
	case KindVideo:
		s.player.LoadVideo(item.YouTubeVideoID)
	}
	s.player.Play()

	if s.started {
		s.state = Ready
	} else {
		s.state = AwaitingGesture
	}
	s.setMessage("playing " + item.Key + " (" + reason + ")")
}

// checkStuck forces an advance when a non-playlist track reached its end
// without the player emitting an ended signal.
func (s *Scheduler) checkStuck() {
	cur, idx := findByKey(s.queue, s.currentKey)
	if idx < 0 || cur.Kind == KindPlaylist {
		return
	}
	if s.player.State() != StatePlaying {
		return
	}
	dur := s.player.Duration()
	pos := s.player.Position()
	if dur > 0 && pos > 0 && dur-pos < stuckEpsilon {
		s.guardUntil = time.Time{}
		s.advance("timer")
	}
}

func (s *Scheduler) handleGesture() {
	s.started = true
	if s.flags != nil {
		_ = s.flags.Save(s.code)
	}
	s.player.Unmute()
	s.player.Play()
	if s.state == AwaitingGesture {
		s.state = Ready
	}
	s.setMessage("autoplay unlocked")
}

func (s *Scheduler) handleReset() {
	s.started = false
	if s.flags != nil {
		_ = s.flags.Clear(s.code)
	}
	s.guardUntil = time.Time{}
	if len(s.queue) > 0 {
		s.playItem(s.queue[0], "reset")
		return
	}
	s.state = AwaitingGesture
	s.publish()
}

func (s *Scheduler) setMessage(msg string) {
	s.message = msg
	s.publish()
}

func (s *Scheduler) publish() {
	if s.notify == nil {
		return
	}
	st := Status{
		State:      s.state,
		CurrentKey: s.currentKey,
		Loop:       s.loop,
		Started:    s.started,
		Message:    s.message,
	}
	if cur, idx := findByKey(s.queue, s.currentKey); idx >= 0 {
		st.Title = cur.Title
		st.Dedication = cur.Dedication
		if st.Title == "" && cur.Kind == KindPlaylist {
			st.Title = "Playlist YouTube"
		}
	}
	s.notify(st)
}
