package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/models"
)

const mac = models.PlayerIdentity("00:11:22:33:44:55")

func TestCoordinator_QueueFileResolves(t *testing.T) {
	c := New(nil)
	gen := c.QueueFile(mac, "/music/a.flac")
	assert.Equal(t, uint64(1), gen)

	path, ok := c.ResolveFile(mac)
	require.True(t, ok)
	assert.Equal(t, "/music/a.flac", path)
}

func TestCoordinator_FallsBackToAudioProvider(t *testing.T) {
	c := New(func(models.PlayerIdentity) (string, bool) { return "/music/fallback.flac", true })

	path, ok := c.ResolveFile(mac)
	require.True(t, ok)
	assert.Equal(t, "/music/fallback.flac", path)
}

func TestCoordinator_QueueByteOffsetClearsSeek(t *testing.T) {
	c := New(nil)
	c.QueueFileWithSeek(mac, "/music/a.mp3", 10, 0, false)
	c.QueueFileWithByteOffset(mac, "/music/a.mp3", 4096)

	view := c.Peek(mac)
	assert.False(t, view.HasSeek, "byte-offset and time-seek are mutually exclusive")
	assert.True(t, view.HasByteOffset)
	assert.Equal(t, int64(4096), view.ByteOffset)
}

func TestCoordinator_QueueSeekClearsByteOffset(t *testing.T) {
	c := New(nil)
	c.QueueFileWithByteOffset(mac, "/music/a.mp3", 4096)
	c.QueueFileWithSeek(mac, "/music/a.mp3", 10, 20, true)

	view := c.Peek(mac)
	assert.False(t, view.HasByteOffset)
	assert.True(t, view.HasSeek)
	assert.Equal(t, 10.0, view.SeekStartS)
	assert.Equal(t, 20.0, view.SeekEndS)
}

func TestCoordinator_EachQueueBumpsGenerationAndCancelsPrevious(t *testing.T) {
	c := New(nil)
	c.QueueFile(mac, "/music/a.flac")
	tok1 := c.CancellationToken(mac)

	gen2 := c.QueueFile(mac, "/music/b.flac")

	select {
	case <-tok1.Done():
	default:
		t.Fatal("previous cancellation token must be cancelled when a new file is queued")
	}
	assert.Equal(t, uint64(2), gen2)
}

func TestCoordinator_ClearSeekAndByteOffset(t *testing.T) {
	c := New(nil)
	c.QueueFileWithSeek(mac, "/music/a.mp3", 5, 0, false)
	c.ClearSeekPosition(mac)
	assert.False(t, c.Peek(mac).HasSeek)

	c.QueueFileWithByteOffset(mac, "/music/a.mp3", 100)
	c.ClearByteOffset(mac)
	assert.False(t, c.Peek(mac).HasByteOffset)
}

func TestCoordinator_ForgetCancelsAndDrops(t *testing.T) {
	c := New(nil)
	c.QueueFile(mac, "/music/a.flac")
	tok := c.CancellationToken(mac)

	c.Forget(mac)

	select {
	case <-tok.Done():
	default:
		t.Fatal("forgetting a player must cancel its in-flight stream")
	}
	_, ok := c.ResolveFile(mac)
	assert.False(t, ok)
}
