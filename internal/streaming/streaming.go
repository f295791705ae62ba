// Package streaming implements StreamingCoordinator (spec.md §4.3): the
// per-player "what file, at what offset, under which cancellation
// token" slot that the Slimproto connection and the /stream.mp3 HTTP
// route both read from.
package streaming

import (
	"context"
	"log/slog"
	"sync"

	"github.com/srosecker/resonance-go/internal/metrics"
	"github.com/srosecker/resonance-go/internal/models"
)

// Slot is one player's current streaming intent.
type Slot struct {
	QueuedPath string
	SeekStartS float64
	SeekEndS   float64
	HasSeek    bool
	ByteOffset int64
	HasByteOffset bool
	Generation uint64
	cancel     context.CancelFunc
	ctx        context.Context
}

// AudioProvider resolves a fallback path for a player when no slot is
// queued — typically wired to PlaylistManager.CurrentTrack.
type AudioProvider func(mac models.PlayerIdentity) (string, bool)

// Coordinator owns one Slot per player.
type Coordinator struct {
	mu       sync.Mutex
	slots    map[models.PlayerIdentity]*Slot
	provider AudioProvider
}

// New creates a Coordinator. provider may be nil if no fallback resolver
// is wired yet.
func New(provider AudioProvider) *Coordinator {
	return &Coordinator{
		slots:    make(map[models.PlayerIdentity]*Slot),
		provider: provider,
	}
}

// SetProvider wires (or replaces) the fallback AudioProvider.
func (c *Coordinator) SetProvider(p AudioProvider) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.provider = p
}

func (c *Coordinator) slotLocked(mac models.PlayerIdentity) *Slot {
	s, ok := c.slots[mac]
	if !ok {
		s = &Slot{}
		c.slots[mac] = s
	}
	return s
}

// bump increments the slot's generation and installs a fresh
// cancellation token, cancelling the previous one first — the ordering
// spec.md §4.3 requires so no stale token is ever live with a new
// generation.
func (s *Slot) bump() {
	if s.cancel != nil {
		s.cancel()
	}
	s.Generation++
	s.ctx, s.cancel = context.WithCancel(context.Background())
	metrics.StreamGenerationTotal.Inc()
}

// QueueFile installs path with no seek, cancelling any active stream.
func (c *Coordinator) QueueFile(mac models.PlayerIdentity, path string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotLocked(mac)
	s.bump()
	s.QueuedPath = path
	s.HasSeek = false
	s.SeekStartS, s.SeekEndS = 0, 0
	s.HasByteOffset = false
	s.ByteOffset = 0
	return s.Generation
}

// QueueFileWithSeek installs path with a time-based seek window.
// byte_offset must be cleared — the two forms are mutually exclusive.
func (c *Coordinator) QueueFileWithSeek(mac models.PlayerIdentity, path string, startS, endS float64, hasEnd bool) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotLocked(mac)
	s.bump()
	s.QueuedPath = path
	s.HasSeek = true
	s.SeekStartS = startS
	if hasEnd {
		s.SeekEndS = endS
	} else {
		s.SeekEndS = 0
	}
	s.HasByteOffset = false
	s.ByteOffset = 0
	return s.Generation
}

// QueueFileWithByteOffset installs path with a byte-based seek. The
// time-based seek fields must be cleared.
func (c *Coordinator) QueueFileWithByteOffset(mac models.PlayerIdentity, path string, offset int64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotLocked(mac)
	s.bump()
	s.QueuedPath = path
	s.HasByteOffset = true
	s.ByteOffset = offset
	s.HasSeek = false
	s.SeekStartS, s.SeekEndS = 0, 0
	return s.Generation
}

// ResolveFile returns the path to stream for mac: the slot's queued
// path if present, else the AudioProvider's fallback.
func (c *Coordinator) ResolveFile(mac models.PlayerIdentity) (string, bool) {
	c.mu.Lock()
	s, ok := c.slots[mac]
	path := ""
	if ok {
		path = s.QueuedPath
	}
	provider := c.provider
	c.mu.Unlock()

	if path != "" {
		slog.Debug("streaming: resolved from slot", "mac", mac)
		return path, true
	}
	if provider != nil {
		if p, ok := provider(mac); ok {
			slog.Debug("streaming: resolved from audio provider", "mac", mac)
			return p, true
		}
	}
	return "", false
}

// CancelStream cancels mac's active cancellation token without touching
// the queued path or generation.
func (c *Coordinator) CancelStream(mac models.PlayerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[mac]; ok && s.cancel != nil {
		s.cancel()
	}
}

// CancellationToken returns the context whose cancellation signals the
// HTTP route (and any transcode subprocess pipeline) to stop streaming
// for mac.
func (c *Coordinator) CancellationToken(mac models.PlayerIdentity) context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotLocked(mac)
	if s.ctx == nil {
		s.bump()
	}
	return s.ctx
}

// StreamGeneration returns mac's current generation counter.
func (c *Coordinator) StreamGeneration(mac models.PlayerIdentity) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.slotLocked(mac).Generation
}

// ClearSeekPosition is called by the HTTP route once the first chunk of
// a seeked stream has gone out — the seek is a one-time instruction.
func (c *Coordinator) ClearSeekPosition(mac models.PlayerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[mac]; ok {
		s.HasSeek = false
		s.SeekStartS, s.SeekEndS = 0, 0
	}
}

// ClearByteOffset is the byte-offset analog of ClearSeekPosition.
func (c *Coordinator) ClearByteOffset(mac models.PlayerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[mac]; ok {
		s.HasByteOffset = false
		s.ByteOffset = 0
	}
}

// Peek returns a value copy of the slot's seek/offset state for the HTTP
// route to consult without holding the coordinator's lock across I/O.
type SlotView struct {
	QueuedPath    string
	HasSeek       bool
	SeekStartS    float64
	SeekEndS      float64
	HasByteOffset bool
	ByteOffset    int64
	Generation    uint64
}

func (c *Coordinator) Peek(mac models.PlayerIdentity) SlotView {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.slotLocked(mac)
	return SlotView{
		QueuedPath:    s.QueuedPath,
		HasSeek:       s.HasSeek,
		SeekStartS:    s.SeekStartS,
		SeekEndS:      s.SeekEndS,
		HasByteOffset: s.HasByteOffset,
		ByteOffset:    s.ByteOffset,
		Generation:    s.Generation,
	}
}

// Forget drops mac's slot entirely (used on player disconnect).
func (c *Coordinator) Forget(mac models.PlayerIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.slots[mac]; ok && s.cancel != nil {
		s.cancel()
	}
	delete(c.slots, mac)
}
