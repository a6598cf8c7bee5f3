package party

import (
	"context"
	"log"
	"reflect"
	"time"

	"github.com/Manuele79/dj-requests/internal/apiclient"
	"github.com/Manuele79/dj-requests/internal/request"
)

// PollInterval is how often the party display refreshes the queue.
const PollInterval = 1500 * time.Millisecond

// Poller periodically fetches the ranked queue and pushes changed
// snapshots downstream. Unchanged payloads are suppressed so the
// scheduler and the display only wake up on real changes.
type Poller struct {
	client   *apiclient.Client
	code     string
	interval time.Duration

	onQueue func([]request.RequestItem)

	last []request.RequestItem
}

func NewPoller(client *apiclient.Client, code string, onQueue func([]request.RequestItem)) *Poller {
	return &Poller{
		client:   client,
		code:     request.NormalizeEventCode(code),
		interval: PollInterval,
		onQueue:  onQueue,
	}
}

// Run polls until ctx is cancelled. The first fetch happens immediately;
// fetch errors are logged and retried on the next tick, keeping the last
// good snapshot on screen.
func (p *Poller) Run(ctx context.Context) {
	p.poll(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	items, err := p.client.ListRequests(ctx, p.code)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("party: poll %s: %v", p.code, err)
		}
		return
	}
	if reflect.DeepEqual(items, p.last) {
		return
	}
	p.last = items
	p.onQueue(items)
}
