package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/models"
)

func track(path string) models.PlaylistTrack {
	return models.PlaylistTrack{Path: path, Title: path}
}

func TestPlaylist_AddAndAdvance(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"), track("c"))

	cur, ok := p.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "a", cur.Path)

	next, ok := p.Advance()
	require.True(t, ok)
	assert.Equal(t, "b", next.Path)

	next, ok = p.Advance()
	require.True(t, ok)
	assert.Equal(t, "c", next.Path)

	_, ok = p.Advance()
	assert.False(t, ok, "RepeatOff must stop at the end of the queue")
}

func TestPlaylist_RepeatAllWrapsAround(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"))
	p.SetRepeat(models.RepeatAll)

	p.JumpTo(1)
	next, ok := p.Advance()
	require.True(t, ok)
	assert.Equal(t, "a", next.Path, "RepeatAll wraps back to the first track")
}

func TestPlaylist_RepeatOneStaysPut(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"))
	p.SetRepeat(models.RepeatOne)

	for i := 0; i < 3; i++ {
		next, ok := p.Advance()
		require.True(t, ok)
		assert.Equal(t, "a", next.Path)
	}
}

func TestPlaylist_DeleteBeforeCurrentShiftsCursor(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"), track("c"))
	p.JumpTo(2) // current = "c"

	p.Delete(0) // remove "a"

	cur, ok := p.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "c", cur.Path, "deleting before the cursor must not change which track is current")
}

func TestPlaylist_ShufflePreservesCurrentTrackIdentity(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"), track("c"), track("d"), track("e"))
	p.JumpTo(2) // current = "c"

	p.SetShuffle(models.ShuffleOn)
	cur, ok := p.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "c", cur.Path, "shuffling must keep the same track current")
	assert.Equal(t, 0, p.Snapshot().CurrentIndex, "shuffling must move the current track to index 0")

	p.SetShuffle(models.ShuffleOff)
	cur, ok = p.CurrentTrack()
	require.True(t, ok)
	assert.Equal(t, "c", cur.Path, "unshuffling must also preserve current-track identity")

	snap := p.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, pathsOf(snap.Tracks), "identity order is restored exactly")
}

func TestPlaylist_ClearResetsCursor(t *testing.T) {
	p := New()
	p.Add(track("a"), track("b"))
	p.Clear()

	_, ok := p.CurrentTrack()
	assert.False(t, ok)
	assert.Equal(t, 0, p.Len())
}

func pathsOf(tracks []models.PlaylistTrack) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Path
	}
	return out
}
