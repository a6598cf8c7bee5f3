package party

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// wsCommand is a control instruction for the in-page player.
type wsCommand struct {
	Cmd    string `json:"cmd"`
	ID     string `json:"id,omitempty"`
	ListID string `json:"listId,omitempty"`
	Index  int    `json:"index"`
}

// wsMessage is anything the page sends back: player status mirrors,
// player lifecycle events, and user commands from the on-screen controls.
type wsMessage struct {
	Type string `json:"type"`

	// status mirror
	State         int     `json:"state"`
	Duration      float64 `json:"duration"`
	Position      float64 `json:"position"`
	PlaylistSize  int     `json:"playlistSize"`
	PlaylistIndex int     `json:"playlistIndex"`

	// error event
	Code int `json:"code"`

	// UI commands
	Key string `json:"key"`
	On  bool   `json:"on"`
}

// UICommand is a user action relayed from the page controls.
type UICommand struct {
	Kind string
	Key  string
	On   bool
}

// WSPlayer adapts one websocket connection to the Player interface. The
// page hosts the actual video player; this side sends commands and keeps
// a mirror of the status the page reports, so the scheduler's probes
// never block on the network.
type WSPlayer struct {
	conn *websocket.Conn
	send chan []byte

	events chan Event
	uiCmds chan UICommand

	mu     sync.RWMutex
	mirror wsMessage

	closeOnce sync.Once
	done      chan struct{}
}

func NewWSPlayer(conn *websocket.Conn) *WSPlayer {
	return &WSPlayer{
		conn:   conn,
		send:   make(chan []byte, 256),
		events: make(chan Event, 16),
		uiCmds: make(chan UICommand, 16),
		done:   make(chan struct{}),
	}
}

// Events is the player event stream consumed by the scheduler. It closes
// when the connection dies.
func (p *WSPlayer) Events() <-chan Event { return p.events }

// UICommands relays user actions from the page controls.
func (p *WSPlayer) UICommands() <-chan UICommand { return p.uiCmds }

// Done closes when the connection is gone.
func (p *WSPlayer) Done() <-chan struct{} { return p.done }

func (p *WSPlayer) LoadVideo(id string) {
	p.command(wsCommand{Cmd: "loadVideo", ID: id})
}

func (p *WSPlayer) LoadPlaylist(listID string, index int) {
	p.command(wsCommand{Cmd: "loadPlaylist", ListID: listID, Index: index})
}

func (p *WSPlayer) Play()   { p.command(wsCommand{Cmd: "play"}) }
func (p *WSPlayer) Mute()   { p.command(wsCommand{Cmd: "mute"}) }
func (p *WSPlayer) Unmute() { p.command(wsCommand{Cmd: "unmute"}) }

func (p *WSPlayer) State() PlayerState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return mapPlayerState(p.mirror.State)
}

func (p *WSPlayer) Duration() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mirror.Duration
}

func (p *WSPlayer) Position() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mirror.Position
}

func (p *WSPlayer) PlaylistSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mirror.PlaylistSize
}

func (p *WSPlayer) PlaylistIndex() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mirror.PlaylistIndex
}

// NextVideo asks the page to skip inside the current playlist. With a
// readable mirror we can tell up front that the playlist is exhausted;
// an unreadable one (size 0) gets the optimistic skip.
func (p *WSPlayer) NextVideo() bool {
	p.mu.RLock()
	size, idx := p.mirror.PlaylistSize, p.mirror.PlaylistIndex
	p.mu.RUnlock()

	if size > 0 && idx >= size-1 {
		return false
	}
	p.command(wsCommand{Cmd: "nextVideo"})
	return true
}

// Send pushes an arbitrary JSON payload to the page (status, queue).
func (p *WSPlayer) Send(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("party: ws encode: %v", err)
		return
	}
	select {
	case p.send <- b:
	default:
		// Slow page; drop rather than stall the scheduler.
	}
}

func (p *WSPlayer) command(cmd wsCommand) {
	p.Send(cmd)
}

func (p *WSPlayer) close() {
	p.closeOnce.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

// ReadPump consumes page messages until the connection drops. Runs on its
// own goroutine per connection. ReadPump owns the event channels: they
// close here and nowhere else.
func (p *WSPlayer) ReadPump() {
	defer func() {
		p.close()
		close(p.events)
		close(p.uiCmds)
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("party: ws read: %v", err)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("party: ws bad message: %v", err)
			continue
		}
		p.dispatch(msg)
	}
}

func (p *WSPlayer) dispatch(msg wsMessage) {
	switch msg.Type {
	case "status":
		p.mu.Lock()
		p.mirror = msg
		p.mu.Unlock()

	case "ready":
		p.emit(Event{Kind: EventReady})
	case "ended":
		p.emit(Event{Kind: EventEnded})
	case "error":
		p.emit(Event{Kind: EventError, Code: msg.Code})

	case "gesture", "skip", "select", "loop", "reset":
		select {
		case p.uiCmds <- UICommand{Kind: msg.Type, Key: msg.Key, On: msg.On}:
		default:
		}
	}
}

func (p *WSPlayer) emit(ev Event) {
	select {
	case p.events <- ev:
	default:
		// Scheduler is behind; events are level-triggered enough that
		// dropping one is recoverable via the stuck check.
	}
}

// WritePump flushes outbound frames and keeps the connection alive with
// pings. Runs on its own goroutine per connection.
func (p *WSPlayer) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case msg, ok := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-p.done:
			return
		}
	}
}

func mapPlayerState(n int) PlayerState {
	switch n {
	case 0:
		return StateEnded
	case 1:
		return StatePlaying
	case 2:
		return StatePaused
	case 3:
		return StateBuffering
	case 5:
		return StateCued
	}
	return StateUnstarted
}
