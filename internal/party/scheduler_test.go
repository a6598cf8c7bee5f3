package party

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Manuele79/dj-requests/internal/request"
)

// fakePlayer records every control call so tests can assert which loads
// happened (or that none did).
type fakePlayer struct {
	loads     []string
	listLoads []string
	plays     int
	muted     bool
	nextCalls int

	state    PlayerState
	duration float64
	position float64
	plSize   int
	plIndex  int
	nextOK   bool
}

func (p *fakePlayer) LoadVideo(id string)           { p.loads = append(p.loads, id) }
func (p *fakePlayer) LoadPlaylist(id string, _ int) { p.listLoads = append(p.listLoads, id) }
func (p *fakePlayer) Play()                         { p.plays++ }
func (p *fakePlayer) Mute()                         { p.muted = true }
func (p *fakePlayer) Unmute()                       { p.muted = false }
func (p *fakePlayer) State() PlayerState            { return p.state }
func (p *fakePlayer) Duration() float64             { return p.duration }
func (p *fakePlayer) Position() float64             { return p.position }
func (p *fakePlayer) PlaylistSize() int             { return p.plSize }
func (p *fakePlayer) PlaylistIndex() int            { return p.plIndex }
func (p *fakePlayer) NextVideo() bool               { p.nextCalls++; return p.nextOK }

type memFlags struct {
	set map[string]bool
}

func newMemFlags() *memFlags { return &memFlags{set: map[string]bool{}} }

func (f *memFlags) Load(code string) bool  { return f.set[code] }
func (f *memFlags) Save(code string) error { f.set[code] = true; return nil }
func (f *memFlags) Clear(code string) error {
	delete(f.set, code)
	return nil
}

func video(key string, votes int) PlayableItem {
	return PlayableItem{
		RequestItem: request.RequestItem{
			ID:             "id-" + key,
			Title:          "Title " + key,
			Platform:       "youtube",
			YouTubeVideoID: key,
			Votes:          votes,
		},
		Kind: KindVideo,
		Key:  key,
	}
}

func playlist(listID string, votes int) PlayableItem {
	return PlayableItem{
		RequestItem: request.RequestItem{
			ID:       "id-list-" + listID,
			Platform: "youtube",
			Votes:    votes,
		},
		Kind:   KindPlaylist,
		Key:    "list:" + listID,
		ListID: listID,
	}
}

func newTestScheduler(p *fakePlayer) (*Scheduler, *[]Status) {
	var seen []Status
	s := NewScheduler("PARTY", p, nil, newMemFlags(), func(st Status) {
		seen = append(seen, st)
	})
	base := time.Now()
	s.now = func() time.Time { return base }
	return s, &seen
}

func TestSnapshotStartsFirstItemMuted(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})

	assert.Equal(t, []string{"aaa"}, p.loads)
	assert.True(t, p.muted, "no gesture yet, playback must start muted")
	assert.Equal(t, AwaitingGesture, s.state)
	assert.Equal(t, "aaa", s.currentKey)
}

func TestSnapshotKeepsCurrentWhenOutranked(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	// bbb overtakes aaa; the current track keeps playing.
	s.handleSnapshot([]PlayableItem{video("bbb", 9), video("aaa", 3)})

	assert.Equal(t, []string{"aaa"}, p.loads, "an outranked current item must not be reloaded")
	assert.Equal(t, "aaa", s.currentKey)
}

func TestSnapshotRestartsWhenCurrentRemoved(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.handleSnapshot([]PlayableItem{video("bbb", 1)})

	assert.Equal(t, []string{"aaa", "bbb"}, p.loads)
	assert.Equal(t, "bbb", s.currentKey)
}

func TestAdvanceWrapsWhenLoopOn(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.handleEvent(Event{Kind: EventEnded})
	assert.Equal(t, "bbb", s.currentKey)

	s.guardUntil = time.Time{}
	s.handleEvent(Event{Kind: EventEnded})

	assert.Equal(t, "aaa", s.currentKey, "loop on: last item wraps to first")
	assert.Equal(t, []string{"aaa", "bbb", "aaa"}, p.loads)
}

func TestAdvanceGoesIdleWhenLoopOff(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)
	s.loop = false

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.handleEvent(Event{Kind: EventEnded})
	loadsBefore := len(p.loads)

	s.guardUntil = time.Time{}
	s.handleEvent(Event{Kind: EventEnded})

	assert.Equal(t, Idle, s.state)
	assert.Equal(t, "bbb", s.currentKey, "idle keeps the last current key")
	assert.Len(t, p.loads, loadsBefore, "going idle must not load anything")
}

func TestAdvanceGuardCollapsesDoubleTrigger(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 2), video("ccc", 1)})
	s.advance("manual")
	// Second trigger lands inside the guard window.
	s.advance("manual")

	assert.Equal(t, "bbb", s.currentKey, "guarded second advance must be a no-op")

	s.now = func() time.Time { return time.Now().Add(time.Second) }
	s.advance("manual")
	assert.Equal(t, "ccc", s.currentKey)
}

func TestPlaylistInternalEndDoesNotAdvance(t *testing.T) {
	p := &fakePlayer{plSize: 5, plIndex: 2}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{playlist("PL1", 3), video("aaa", 1)})
	assert.Equal(t, []string{"PL1"}, p.listLoads)
	loads, listLoads := len(p.loads), len(p.listLoads)

	s.handleEvent(Event{Kind: EventEnded})

	assert.Len(t, p.loads, loads, "internal playlist end must not load a video")
	assert.Len(t, p.listLoads, listLoads, "internal playlist end must not reload the playlist")
	assert.Equal(t, "list:PL1", s.currentKey)
}

func TestPlaylistFinalEndAdvances(t *testing.T) {
	p := &fakePlayer{plSize: 5, plIndex: 4}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{playlist("PL1", 3), video("aaa", 1)})
	s.handleEvent(Event{Kind: EventEnded})

	assert.Equal(t, "aaa", s.currentKey, "last internal track ended: move to next queue item")
	assert.Equal(t, []string{"aaa"}, p.loads)
}

func TestPlaylistUnreadableEndStaysPut(t *testing.T) {
	p := &fakePlayer{plSize: 0}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{playlist("PL1", 3), video("aaa", 1)})
	s.handleEvent(Event{Kind: EventEnded})

	assert.Equal(t, "list:PL1", s.currentKey)
	assert.Empty(t, p.loads)
}

func TestErrorInsidePlaylistSkipsInternally(t *testing.T) {
	p := &fakePlayer{nextOK: true}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{playlist("PL1", 3), video("aaa", 1)})
	s.handleEvent(Event{Kind: EventError, Code: 150})

	assert.Equal(t, 1, p.nextCalls)
	assert.Equal(t, "list:PL1", s.currentKey, "internal skip must not leave the playlist")
	assert.Empty(t, p.loads)
}

func TestErrorOnVideoAdvances(t *testing.T) {
	p := &fakePlayer{}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.handleEvent(Event{Kind: EventError, Code: 101})

	assert.Equal(t, "bbb", s.currentKey)
	assert.Zero(t, p.nextCalls, "plain video errors never touch playlist controls")
}

func TestStuckTrackForcesAdvance(t *testing.T) {
	p := &fakePlayer{state: StatePlaying, duration: 180, position: 179.6}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.checkStuck()

	assert.Equal(t, "bbb", s.currentKey, "track parked at its end must advance")
}

func TestStuckCheckIgnoresPlaylistsAndMidTrack(t *testing.T) {
	p := &fakePlayer{state: StatePlaying, duration: 180, position: 90}
	s, _ := newTestScheduler(p)

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.checkStuck()
	assert.Equal(t, "aaa", s.currentKey, "mid-track must not advance")

	p2 := &fakePlayer{state: StatePlaying, duration: 180, position: 179.9, plSize: 3, plIndex: 0}
	s2, _ := newTestScheduler(p2)
	s2.handleSnapshot([]PlayableItem{playlist("PL1", 3), video("aaa", 1)})
	s2.checkStuck()
	assert.Equal(t, "list:PL1", s2.currentKey, "playlists are exempt from the stuck check")
}

func TestGestureUnmutesAndPersists(t *testing.T) {
	p := &fakePlayer{}
	flags := newMemFlags()
	s := NewScheduler("PARTY", p, nil, flags, nil)
	s.now = time.Now

	s.handleSnapshot([]PlayableItem{video("aaa", 3)})
	assert.True(t, p.muted)

	s.handleGesture()

	assert.False(t, p.muted)
	assert.Equal(t, Ready, s.state)
	assert.True(t, flags.Load("PARTY"), "gesture must persist the autoplay flag")

	// A fresh session for the same event starts unlocked.
	s2 := NewScheduler("PARTY", &fakePlayer{}, nil, flags, nil)
	assert.True(t, s2.started)
}

func TestResetClearsFlagAndRestarts(t *testing.T) {
	p := &fakePlayer{}
	flags := newMemFlags()
	_ = flags.Save("PARTY")
	s := NewScheduler("PARTY", p, nil, flags, nil)
	s.now = time.Now

	s.handleSnapshot([]PlayableItem{video("aaa", 3), video("bbb", 1)})
	s.handleEvent(Event{Kind: EventEnded})
	assert.Equal(t, "bbb", s.currentKey)

	s.handleReset()

	assert.False(t, flags.Load("PARTY"))
	assert.False(t, s.started)
	assert.Equal(t, AwaitingGesture, s.state)
	assert.Equal(t, "aaa", s.currentKey, "reset restarts from the top of the queue")
	assert.True(t, p.muted)
}

func TestUnplayablePlaylistReportsAndStays(t *testing.T) {
	p := &fakePlayer{}
	s, seen := newTestScheduler(p)

	broken := playlist("", 5)
	broken.Key = "list:id-fallback"
	s.handleSnapshot([]PlayableItem{broken, video("aaa", 1)})

	assert.Empty(t, p.listLoads, "playlist without a list id must not be loaded")
	assert.Empty(t, p.loads)
	if assert.NotEmpty(t, *seen) {
		last := (*seen)[len(*seen)-1]
		assert.Contains(t, last.Message, "not playable")
	}
}

func TestStatusCarriesCurrentTitleAndDedication(t *testing.T) {
	p := &fakePlayer{}
	s, seen := newTestScheduler(p)

	item := video("aaa", 3)
	item.Dedication = "per Giulia"
	s.handleSnapshot([]PlayableItem{item})

	last := (*seen)[len(*seen)-1]
	assert.Equal(t, "Title aaa", last.Title)
	assert.Equal(t, "per Giulia", last.Dedication)
	assert.Equal(t, AwaitingGesture, last.State)
}
