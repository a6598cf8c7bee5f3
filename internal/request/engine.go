package request

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Manuele79/dj-requests/internal/platform"
	"github.com/Manuele79/dj-requests/internal/title"
)

// TitleResolver is the enrichment seam; failures are handled inside the
// resolver itself, so Resolve always returns something displayable.
type TitleResolver interface {
	Resolve(ctx context.Context, title, rawURL string, p platform.Platform) string
}

// Engine owns all RequestItem writes: fingerprint merge, vote adjustment
// and the ranked window query.
type Engine struct {
	store    Store
	resolver TitleResolver
	now      func() time.Time
}

func NewEngine(store Store, resolver TitleResolver) *Engine {
	return &Engine{
		store:    store,
		resolver: resolver,
		now:      time.Now,
	}
}

// Submit applies the merge-or-insert contract. The returned bool is true
// when the submission merged into an existing youtube request.
func (e *Engine) Submit(ctx context.Context, in SubmitInput) (*RequestItem, bool, error) {
	code := NormalizeEventCode(in.EventCode)
	titleIn := strings.TrimSpace(in.Title)
	urlIn := strings.TrimSpace(in.URL)

	if code == "" || (titleIn == "" && urlIn == "") {
		return nil, false, &apiError{http.StatusBadRequest, "eventCode and title or url are required"}
	}

	ev, err := e.store.GetEvent(ctx, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, &apiError{http.StatusNotFound, "event not found"}
	}
	if err != nil {
		return nil, false, err
	}
	now := e.now()
	if ev.Expired(now) {
		return nil, false, &apiError{http.StatusGone, "event expired"}
	}

	pf, videoID, isPlaylist := platform.Classify(urlIn)

	var safeTitle string
	if isPlaylist {
		// Playlists never hit the oEmbed lookup.
		safeTitle = titleIn
		if safeTitle == "" {
			safeTitle = title.PlaylistLabel(pf)
		}
	} else {
		safeTitle = e.resolver.Resolve(ctx, titleIn, urlIn, pf)
	}

	dedication := strings.TrimSpace(in.Dedication)
	if len([]rune(dedication)) > DedicationMax {
		dedication = string([]rune(dedication)[:DedicationMax])
	}

	if pf == platform.YouTube && videoID != "" {
		merged, err := e.mergeExisting(ctx, code, videoID, safeTitle, now)
		if err != nil {
			return nil, false, err
		}
		if merged != nil {
			return merged, true, nil
		}
	}

	item := &RequestItem{
		ID:             uuid.NewString(),
		EventCode:      code,
		Title:          safeTitle,
		URL:            urlIn,
		Platform:       pf,
		YouTubeVideoID: videoID,
		Dedication:     dedication,
		Votes:          1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.Insert(ctx, item); err != nil {
		// A concurrent identical submission beat us to the fingerprint
		// index: fold this one into the winner as an extra vote.
		if IsUniqueViolation(err) && pf == platform.YouTube && videoID != "" {
			merged, mergeErr := e.mergeExisting(ctx, code, videoID, safeTitle, now)
			if mergeErr == nil && merged != nil {
				return merged, true, nil
			}
			log.Printf("request: merge after unique violation: %v", mergeErr)
		}
		return nil, false, err
	}
	return item, false, nil
}

func (e *Engine) mergeExisting(ctx context.Context, code, videoID, safeTitle string, now time.Time) (*RequestItem, error) {
	existing, err := e.store.FindByVideoID(ctx, code, videoID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e.store.UpdateMerged(ctx, existing.ID, existing.Votes+1, safeTitle, now)
}

// Upvote adjusts votes by delta (default 1 at the HTTP layer), flooring at
// zero. It mutates by id and never consults the fingerprint.
func (e *Engine) Upvote(ctx context.Context, id string, delta int) (*RequestItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &apiError{http.StatusBadRequest, "id is required"}
	}
	item, err := e.store.Get(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &apiError{http.StatusNotFound, "request not found"}
	}
	if err != nil {
		return nil, err
	}
	votes := item.Votes + delta
	if votes < 0 {
		votes = 0
	}
	return e.store.UpdateVotes(ctx, id, votes, e.now())
}

// List returns the event's requests from the trailing 12h window, ranked
// votes desc then updatedAt desc, capped at ListLimit. An unknown or empty
// code yields an empty list, not an error.
func (e *Engine) List(ctx context.Context, code string) ([]RequestItem, error) {
	code = NormalizeEventCode(code)
	if code == "" {
		return []RequestItem{}, nil
	}
	return e.store.List(ctx, code, e.now().Add(-BrowseWindow), ListLimit)
}
