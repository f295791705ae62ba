// Package registry tracks every connected player by MAC address, the
// control plane's equivalent of the teacher's device registry: a
// mutex-protected map with connect/disconnect lifecycle events.
package registry

import (
	"sync"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/metrics"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
)

// Registry is the single source of truth for "which players are
// currently connected". PlayerClient identity is its MAC address.
type Registry struct {
	bus *events.Bus

	mu      sync.RWMutex
	players map[models.PlayerIdentity]*player.Client
}

// New creates an empty Registry that publishes lifecycle events on bus.
func New(bus *events.Bus) *Registry {
	return &Registry{
		bus:     bus,
		players: make(map[models.PlayerIdentity]*player.Client),
	}
}

// Connect registers a newly handshaken player, replacing any prior
// client with the same MAC (a reconnect from the same device). It emits
// player.connected after the map is updated.
func (r *Registry) Connect(c *player.Client) {
	mac := c.Info.MAC
	r.mu.Lock()
	if old, ok := r.players[mac]; ok && old != c {
		old.Disconnect()
	}
	r.players[mac] = c
	count := len(r.players)
	r.mu.Unlock()

	metrics.PlayersConnected.Set(float64(count))
	r.bus.Publish(events.ChannelPlayerConnected, events.PlayerLifecyclePayload{PlayerMAC: string(mac)})
}

// Disconnect removes mac from the registry (if it is still the current
// client) and emits player.disconnected. It does not itself call
// Client.Disconnect — the caller (the Slimproto connection loop) owns
// that since it knows the transport is already dead.
func (r *Registry) Disconnect(mac models.PlayerIdentity) {
	r.mu.Lock()
	_, existed := r.players[mac]
	delete(r.players, mac)
	count := len(r.players)
	r.mu.Unlock()

	if existed {
		metrics.PlayersConnected.Set(float64(count))
		r.bus.Publish(events.ChannelPlayerDisconnected, events.PlayerLifecyclePayload{PlayerMAC: string(mac)})
	}
}

// Get returns the client for mac, if connected.
func (r *Registry) Get(mac models.PlayerIdentity) (*player.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.players[mac]
	return c, ok
}

// All returns a snapshot slice of every currently connected client.
func (r *Registry) All() []*player.Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*player.Client, 0, len(r.players))
	for _, c := range r.players {
		out = append(out, c)
	}
	return out
}

// Count returns the number of connected players.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
