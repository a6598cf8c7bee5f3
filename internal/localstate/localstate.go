// Package localstate persists small per-device state for the party display
// and the operator CLI: the per-event autoplay-unlocked flag and the recent
// submission history. Everything lives as small JSON files under one
// directory, so a crash loses at most the last write.
package localstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// HistoryLimit caps the stored submission history per event.
const HistoryLimit = 30

type Store struct {
	dir string
}

// New opens a store rooted at dir, creating it if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Default places the store under the user config directory.
func Default() (*Store, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return New(filepath.Join(base, "dj-requests"))
}

// Load reports whether autoplay was unlocked for the event. Implements the
// scheduler's FlagStore.
func (s *Store) Load(code string) bool {
	_, err := os.Stat(s.flagPath(code))
	return err == nil
}

func (s *Store) Save(code string) error {
	return os.WriteFile(s.flagPath(code), []byte(time.Now().UTC().Format(time.RFC3339)+"\n"), 0o644)
}

func (s *Store) Clear(code string) error {
	err := os.Remove(s.flagPath(code))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// HistoryEntry is one remembered submission.
type HistoryEntry struct {
	Title string    `json:"title"`
	URL   string    `json:"url"`
	At    time.Time `json:"at"`
}

// AppendHistory records a submission, newest first, trimming past the cap.
func (s *Store) AppendHistory(code string, e HistoryEntry) error {
	entries, err := s.History(code)
	if err != nil {
		return err
	}

	entries = append([]HistoryEntry{e}, entries...)
	if len(entries) > HistoryLimit {
		entries = entries[:HistoryLimit]
	}

	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.historyPath(code), b, 0o644)
}

// History returns the remembered submissions, newest first. A missing or
// unreadable file reads as empty.
func (s *Store) History(code string) ([]HistoryEntry, error) {
	b, err := os.ReadFile(s.historyPath(code))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		// Corrupt history is not worth failing a submission over.
		return nil, nil
	}
	return entries, nil
}

func (s *Store) flagPath(code string) string {
	return filepath.Join(s.dir, "autoplay-"+safeName(code)+".flag")
}

func (s *Store) historyPath(code string) string {
	return filepath.Join(s.dir, "history-"+safeName(code)+".json")
}

// safeName keeps file names boring regardless of what the code contains.
func safeName(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	var b strings.Builder
	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "DEFAULT"
	}
	return b.String()
}
