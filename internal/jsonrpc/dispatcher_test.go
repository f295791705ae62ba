package jsonrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/playlist"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/seek"
	"github.com/srosecker/resonance-go/internal/streaming"
)

// fakeTransport records outbound frames instead of writing to a socket,
// so the dispatcher's player-control handlers can be exercised without a
// live Slimproto connection.
type fakeTransport struct {
	strms     []player.StrmCommand
	gain      float64
	enabled   bool
}

func (f *fakeTransport) SendStrm(cmd player.StrmCommand, params player.StartParams) error {
	f.strms = append(f.strms, cmd)
	return nil
}
func (f *fakeTransport) SendAudioGain(lr float64) error { f.gain = lr; return nil }
func (f *fakeTransport) SendAudioEnable(enabled bool) error {
	f.enabled = enabled
	return nil
}
func (f *fakeTransport) Close() error { return nil }

func newTestDispatcher(t *testing.T) (*Dispatcher, *player.Client, *fakeTransport) {
	t.Helper()
	bus := events.New()
	reg := registry.New(bus)
	playlists := playlist.NewManager()
	stream := streaming.New(playlists.CurrentTrackPath)
	seekCoord := seek.New()

	transport := &fakeTransport{}
	mac := models.PlayerIdentity("00:11:22:33:44:55")
	c := player.New(models.PlayerInfo{MAC: mac, DeviceTypeName: "squeezelite"}, transport, bus)
	reg.Connect(c)

	d := &Dispatcher{
		Server:    ServerInfo{Name: "resonance-test", UUID: "uuid-1", Version: "1.0.0"},
		Registry:  reg,
		Playlists: playlists,
		Streaming: stream,
		Seek:      seekCoord,
		Library:   library.Empty{},
		Artwork:   library.EmptyArtwork{},
	}
	return d, c, transport
}

func TestDispatch_ServerStatus(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	result, err := d.Dispatch(context.Background(), "", []any{"serverstatus"})
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", result["uuid"])
	assert.Equal(t, 1, result["player count"])
}

func TestDispatch_PauseFromStoppedStillSendsStrm(t *testing.T) {
	d, c, transport := newTestDispatcher(t)
	mac := string(c.Info.MAC)

	// Pause from Stopped is a no-op transition, but the strm-p frame
	// still goes out per spec.md's handler note: LMS always forwards
	// the command and lets the firmware ignore an invalid transition.
	_, err := d.Dispatch(context.Background(), mac, []any{"pause"})
	require.NoError(t, err)
	require.Len(t, transport.strms, 1)
	assert.Equal(t, player.StrmPause, transport.strms[0])
}

func TestDispatch_MixerVolumeAbsolute(t *testing.T) {
	d, c, _ := newTestDispatcher(t)
	mac := string(c.Info.MAC)

	result, err := d.Dispatch(context.Background(), mac, []any{"mixer", "volume", "42"})
	require.NoError(t, err)
	assert.Equal(t, 42, result["volume"])
	assert.Equal(t, 42, c.Snapshot().Volume)
}

func TestDispatch_MixerVolumeRelative(t *testing.T) {
	d, c, _ := newTestDispatcher(t)
	mac := string(c.Info.MAC)

	_, err := d.Dispatch(context.Background(), mac, []any{"mixer", "volume", "50"})
	require.NoError(t, err)

	result, err := d.Dispatch(context.Background(), mac, []any{"mixer", "volume", "+10"})
	require.NoError(t, err)
	assert.Equal(t, 60, result["volume"])
	assert.Equal(t, true, result["relative"])
}

func TestDispatch_StopCancelsStream(t *testing.T) {
	d, c, transport := newTestDispatcher(t)
	mac := models.PlayerIdentity(c.Info.MAC)

	d.Streaming.QueueFile(mac, "/music/a.flac")
	tok := d.Streaming.CancellationToken(mac)

	_, err := d.Dispatch(context.Background(), string(mac), []any{"stop"})
	require.NoError(t, err)
	require.Len(t, transport.strms, 1)
	assert.Equal(t, player.StrmStop, transport.strms[0])

	select {
	case <-tok.Done():
	default:
		t.Fatal("stop must cancel the in-flight stream")
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), "", []any{"not-a-real-command"})
	assert.Error(t, err)
}

func TestDispatch_UnknownPlayer(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	_, err := d.Dispatch(context.Background(), "aa:bb:cc:dd:ee:ff", []any{"pause"})
	assert.Error(t, err)
}
