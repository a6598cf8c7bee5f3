// The party binary serves the venue display: an embedded page hosting the
// video player, bridged over a websocket to a server-side playback
// scheduler that polls the queue API.
package main

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"github.com/Manuele79/dj-requests/internal/apiclient"
	"github.com/Manuele79/dj-requests/internal/localstate"
	"github.com/Manuele79/dj-requests/internal/party"
	"github.com/Manuele79/dj-requests/internal/request"
)

//go:embed party.gohtml
var pageFS embed.FS

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type app struct {
	client *apiclient.Client
	flags  *localstate.Store
	page   *template.Template
}

func main() {
	_ = godotenv.Load()

	port := getenv("PORT", "3005")
	apiBase := getenv("API_BASE", "http://localhost:3001")
	apiSecret := getenv("API_SECRET", "")
	stateDir := os.Getenv("STATE_DIR")

	var flags *localstate.Store
	var err error
	if stateDir != "" {
		flags, err = localstate.New(stateDir)
	} else {
		flags, err = localstate.Default()
	}
	if err != nil {
		log.Fatalf("party: state dir: %v", err)
	}

	a := &app{
		client: apiclient.New(apiBase, apiSecret),
		flags:  flags,
		page:   template.Must(template.ParseFS(pageFS, "party.gohtml")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Get("/health", a.handleHealth)
	r.Get("/", a.handlePage)
	r.Get("/ws", a.handleWS)

	log.Printf("party listening on :%s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("party: %v", err)
	}
}

func (a *app) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok","service":"party"}`))
}

func (a *app) handlePage(w http.ResponseWriter, r *http.Request) {
	code := request.NormalizeEventCode(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "missing ?code=<event code>", http.StatusBadRequest)
		return
	}
	if err := a.page.Execute(w, map[string]any{"Code": code}); err != nil {
		log.Printf("party: render: %v", err)
	}
}

// handleWS runs one display session: a scheduler fed by the queue poller
// on one side and the in-page player on the other. Everything tears down
// together when the socket drops.
func (a *app) handleWS(w http.ResponseWriter, r *http.Request) {
	code := request.NormalizeEventCode(r.URL.Query().Get("code"))
	if code == "" {
		http.Error(w, "missing ?code=<event code>", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("party: ws upgrade: %v", err)
		return
	}

	player := party.NewWSPlayer(conn)
	go player.WritePump()
	go player.ReadPump()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sched := party.NewScheduler(code, player, player.Events(), a.flags, func(st party.Status) {
		player.Send(map[string]any{"type": "status", "status": st})
	})

	poller := party.NewPoller(a.client, code, func(items []request.RequestItem) {
		proj := party.BuildProjection(items)
		sched.UpdateQueue(proj)
		player.Send(map[string]any{
			"type":    "queue",
			"items":   proj,
			"spotify": party.DisplayQueue(items, "spotify"),
		})
	})

	go poller.Run(ctx)
	go a.relayUICommands(ctx, player, sched)

	log.Printf("party: session open for %s", code)
	sched.Run(ctx)
	log.Printf("party: session closed for %s", code)
}

func (a *app) relayUICommands(ctx context.Context, player *party.WSPlayer, sched *party.Scheduler) {
	for {
		select {
		case <-ctx.Done():
			return
		case cmd, ok := <-player.UICommands():
			if !ok {
				return
			}
			switch cmd.Kind {
			case "gesture":
				sched.Gesture()
			case "skip":
				sched.Skip()
			case "select":
				sched.Select(cmd.Key)
			case "loop":
				sched.SetLoop(cmd.On)
			case "reset":
				sched.Reset()
			}
		}
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
