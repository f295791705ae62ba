package playlist

import (
	"sync"

	"github.com/srosecker/resonance-go/internal/models"
)

// Manager owns one Playlist per connected player.
type Manager struct {
	mu        sync.Mutex
	playlists map[models.PlayerIdentity]*Playlist
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{playlists: make(map[models.PlayerIdentity]*Playlist)}
}

// For returns mac's Playlist, creating one on first use.
func (m *Manager) For(mac models.PlayerIdentity) *Playlist {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.playlists[mac]
	if !ok {
		p = New()
		m.playlists[mac] = p
	}
	return p
}

// Forget drops mac's playlist entirely (on disconnect).
func (m *Manager) Forget(mac models.PlayerIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.playlists, mac)
}

// CurrentTrackPath implements streaming.AudioProvider: it resolves the
// current track's path from mac's playlist, used as the StreamingCoordinator's
// fallback when no slot is explicitly queued.
func (m *Manager) CurrentTrackPath(mac models.PlayerIdentity) (string, bool) {
	t, ok := m.For(mac).CurrentTrack()
	if !ok {
		return "", false
	}
	return t.Path, true
}
