package jsonrpc

import (
	"log/slog"

	"github.com/srosecker/resonance-go/internal/models"
)

// HandleTrackFinished reacts to a player.track_finished bus event. Two
// independent guards protect it from a stale STMu (spec.md §5): (a) the
// stream generation that finished must still be the player's current
// generation (no seek or new track superseded it in the meantime), and
// (b) no manual track start may have opened its suppression window for
// this player in the last second. Either guard failing means some other
// command already changed what's playing, so the event is ignored
// (spec.md §4's "latest wins" rule).
func (d *Dispatcher) HandleTrackFinished(mac models.PlayerIdentity, generation uint64) {
	if d.Streaming.StreamGeneration(mac) != generation {
		return
	}
	if d.isTrackFinishedSuppressed(mac) {
		return
	}
	c, ok := d.Registry.Get(mac)
	if !ok {
		return
	}
	pl := d.Playlists.For(mac)
	next, ok := pl.Advance()
	if !ok {
		_ = c.Stop()
		return
	}
	// Bypasses the startTrack wrapper deliberately: this is the
	// auto-advance itself, so it must not suppress the new track's own
	// legitimate track_finished when it eventually arrives.
	if err := d.Slim.StartTrack(c, mac, next.Path); err != nil {
		slog.Warn("jsonrpc: failed to start next track after finish", "mac", mac, "err", err)
	}
}
