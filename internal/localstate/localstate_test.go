package localstate

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoplayFlagRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	assert.False(t, s.Load("PARTY"))

	require.NoError(t, s.Save("PARTY"))
	assert.True(t, s.Load("PARTY"))
	assert.False(t, s.Load("ALTRO"), "flags are per event")

	require.NoError(t, s.Clear("PARTY"))
	assert.False(t, s.Load("PARTY"))

	// Clearing an absent flag is fine.
	require.NoError(t, s.Clear("PARTY"))
}

func TestHistoryCapsAtLimit(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < HistoryLimit+5; i++ {
		err := s.AppendHistory("PARTY", HistoryEntry{
			Title: fmt.Sprintf("song %d", i),
			URL:   fmt.Sprintf("https://youtu.be/v%d", i),
			At:    time.Now(),
		})
		require.NoError(t, err)
	}

	entries, err := s.History("PARTY")
	require.NoError(t, err)
	require.Len(t, entries, HistoryLimit)
	assert.Equal(t, fmt.Sprintf("song %d", HistoryLimit+4), entries[0].Title, "newest first")
}

func TestHistoryMissingFileReadsEmpty(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	entries, err := s.History("NIENTE")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"party", "PARTY"},
		{"  festa 2026 ", "FESTA_2026"},
		{"a/b\\c", "A_B_C"},
		{"", "DEFAULT"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeName(tt.in), "safeName(%q)", tt.in)
	}
}
