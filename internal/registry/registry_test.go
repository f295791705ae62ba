package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
)

type stubTransport struct{}

func (stubTransport) SendStrm(player.StrmCommand, player.StartParams) error { return nil }
func (stubTransport) SendAudioGain(float64) error                           { return nil }
func (stubTransport) SendAudioEnable(bool) error                            { return nil }
func (stubTransport) Close() error                                         { return nil }

func newClient(mac string) *player.Client {
	bus := events.New()
	return player.New(models.PlayerInfo{MAC: models.PlayerIdentity(mac), DeviceTypeName: "squeezelite"}, stubTransport{}, bus)
}

func TestRegistry_ConnectAndGet(t *testing.T) {
	bus := events.New()
	r := New(bus)
	c := newClient("00:11:22:33:44:55")

	r.Connect(c)

	got, ok := r.Get(c.Info.MAC)
	require.True(t, ok)
	assert.Same(t, c, got)
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_ReconnectSameMACReplacesClient(t *testing.T) {
	bus := events.New()
	r := New(bus)
	mac := models.PlayerIdentity("00:11:22:33:44:55")

	first := newClient(string(mac))
	second := newClient(string(mac))

	r.Connect(first)
	r.Connect(second)

	got, ok := r.Get(mac)
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Count(), "a reconnect must not leave two entries for the same MAC")
}

func TestRegistry_Disconnect(t *testing.T) {
	bus := events.New()
	r := New(bus)
	c := newClient("00:11:22:33:44:55")
	r.Connect(c)

	r.Disconnect(c.Info.MAC)

	_, ok := r.Get(c.Info.MAC)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestRegistry_All(t *testing.T) {
	bus := events.New()
	r := New(bus)
	r.Connect(newClient("aa:aa:aa:aa:aa:aa"))
	r.Connect(newClient("bb:bb:bb:bb:bb:bb"))

	all := r.All()
	assert.Len(t, all, 2)
}

func TestRegistry_DisconnectUnknownMACIsNoop(t *testing.T) {
	bus := events.New()
	r := New(bus)
	r.Disconnect(models.PlayerIdentity("not:connected"))
	assert.Equal(t, 0, r.Count())
}
