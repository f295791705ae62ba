package jsonrpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/config"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/slimproto"
	"github.com/srosecker/resonance-go/internal/transcode"
)

func newTestDispatcherWithSlim(t *testing.T) (*Dispatcher, *player.Client, *fakeTransport) {
	t.Helper()
	d, c, transport := newTestDispatcher(t)
	policy := transcode.New(&config.Tables{})
	d.Slim = slimproto.NewServer(d.Registry, nil, d.Streaming, policy, "localhost:9000", 0)
	return d, c, transport
}

func TestHandleTrackFinished_StaleGenerationIgnored(t *testing.T) {
	d, c, _ := newTestDispatcherWithSlim(t)
	mac := models.PlayerIdentity(c.Info.MAC)

	d.Playlists.For(mac).Add(models.PlaylistTrack{Path: "/music/a.flac"}, models.PlaylistTrack{Path: "/music/b.flac"})
	d.Streaming.QueueFile(mac, "/music/a.flac")

	d.HandleTrackFinished(mac, 999) // generation that was never current

	assert.Equal(t, 0, d.Playlists.For(mac).Snapshot().CurrentIndex, "a stale generation must not advance the playlist")
}

func TestHandleTrackFinished_SuppressedAfterManualStart(t *testing.T) {
	d, c, _ := newTestDispatcherWithSlim(t)
	mac := models.PlayerIdentity(c.Info.MAC)

	d.Playlists.For(mac).Add(models.PlaylistTrack{Path: "/music/a.flac"}, models.PlaylistTrack{Path: "/music/b.flac"})
	require.NoError(t, d.startTrack(c, mac, "/music/a.flac"))

	gen := d.Streaming.StreamGeneration(mac)
	d.HandleTrackFinished(mac, gen)

	assert.Equal(t, 0, d.Playlists.For(mac).Snapshot().CurrentIndex, "a track_finished racing a manual start must be suppressed")
}

func TestHandleTrackFinished_AdvancesOutsideSuppressionWindow(t *testing.T) {
	d, c, _ := newTestDispatcherWithSlim(t)
	mac := models.PlayerIdentity(c.Info.MAC)

	d.Playlists.For(mac).Add(models.PlaylistTrack{Path: "/music/a.flac"}, models.PlaylistTrack{Path: "/music/b.flac"})
	d.Streaming.QueueFile(mac, "/music/a.flac")
	gen := d.Streaming.StreamGeneration(mac)

	d.HandleTrackFinished(mac, gen)

	assert.Equal(t, 1, d.Playlists.For(mac).Snapshot().CurrentIndex, "an unsuppressed, current-generation finish must advance the playlist")
}
