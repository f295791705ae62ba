// Package player implements the per-connection state machine described in
// spec.md §4.2: PlayerClient owns one Squeezebox's status and the
// transport frames needed to drive it, independent of how those frames
// are actually put on the wire (see Transport).
package player

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/models"
)

// StrmCommand is the single-byte subcommand of an outbound `strm` frame.
type StrmCommand byte

const (
	StrmStart  StrmCommand = 's'
	StrmStop   StrmCommand = 'q'
	StrmPause  StrmCommand = 'p'
	StrmUnpause StrmCommand = 'u'
	StrmFlush  StrmCommand = 'f'
	StrmStatus StrmCommand = 't'
)

// StartParams carries the fields needed for an `strm-s` frame.
type StartParams struct {
	Format     string // "mp3", "flc", ...
	HTTPHost   string
	HTTPPath   string
	ReplayGain float64
}

// Transport is the outbound-frame side of a Slimproto connection. The
// slimproto package implements this; player never touches raw sockets.
type Transport interface {
	SendStrm(cmd StrmCommand, params StartParams) error
	SendAudioGain(leftRight float64) error
	SendAudioEnable(enabled bool) error
	Close() error
}

// Client is one connected (or just-disconnected) player. All state
// mutation goes through the methods below, which follow the teacher's
// lock → copy → mutate → publish pattern so a Snapshot never observes a
// torn update.
type Client struct {
	Info models.PlayerInfo

	bus       *events.Bus
	transport Transport

	mu     sync.Mutex
	status models.PlayerStatus
}

// New creates a Client in the Stopped state (the HELO handshake has
// already completed by the time one of these is constructed).
func New(info models.PlayerInfo, transport Transport, bus *events.Bus) *Client {
	return &Client{
		Info:      info,
		bus:       bus,
		transport: transport,
		status: models.PlayerStatus{
			State:      models.StateStopped,
			LastSeenAt: time.Now(),
		},
	}
}

// Snapshot returns a value copy of the current status, safe to publish
// or serialize from another goroutine.
func (c *Client) Snapshot() models.PlayerStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Snapshot()
}

func (c *Client) apply(mutate func(*models.PlayerStatus)) {
	c.mu.Lock()
	mutate(&c.status)
	c.status.StateName = c.status.State.String()
	c.status.LastSeenAt = time.Now()
	snap := c.status.Snapshot()
	c.mu.Unlock()

	c.bus.Publish(events.ChannelPlayerStatus, events.StatusPayload{
		PlayerMAC: string(c.Info.MAC),
		Status:    snap,
	})
}

// transition validates and applies a state-machine edge from spec.md §4.2.
// An invalid edge is logged and ignored rather than panicking — a
// malformed or late STAT frame must never crash the connection.
func (c *Client) transition(to models.PlaybackState, valid func(models.PlaybackState) bool) {
	c.mu.Lock()
	from := c.status.State
	ok := valid(from)
	c.mu.Unlock()
	if !ok {
		slog.Warn("player: invalid state transition", "mac", c.Info.MAC, "from", from, "to", to)
		return
	}
	c.apply(func(s *models.PlayerStatus) { s.State = to })
}

// StartTrack begins streaming trackRef (an opaque reference resolved by
// the streaming coordinator, typically the track path) in the given wire
// format, at streamGeneration. It always sends strm-s; the caller is
// responsible for having already bumped the StreamingCoordinator's
// generation and queued the file.
func (c *Client) StartTrack(trackRef, format, httpHost, httpPath string, streamGeneration uint64) error {
	c.transition(models.StateBuffering, func(from models.PlaybackState) bool {
		return true // start_track is valid from any state; it supersedes whatever was playing.
	})
	c.apply(func(s *models.PlayerStatus) {
		s.CurrentTrackRef = trackRef
		s.StreamGeneration = streamGeneration
		s.ElapsedMS = 0
	})
	return c.transport.SendStrm(StrmStart, StartParams{
		Format:   format,
		HTTPHost: httpHost,
		HTTPPath: httpPath,
	})
}

// Play sends strm-u from Paused or Stopped and records Playing; in any
// other state it does nothing. It does not start a queued track itself:
// that goes through StartTrack.
func (c *Client) Play() error {
	c.mu.Lock()
	state := c.status.State
	c.mu.Unlock()
	if state != models.StatePaused && state != models.StateStopped {
		return nil
	}
	if err := c.transport.SendStrm(StrmUnpause, StartParams{}); err != nil {
		return err
	}
	c.transition(models.StatePlaying, func(from models.PlaybackState) bool {
		return from == models.StatePaused || from == models.StateStopped
	})
	return nil
}

// Pause pauses an actively playing player.
func (c *Client) Pause() error {
	if err := c.transport.SendStrm(StrmPause, StartParams{}); err != nil {
		return err
	}
	c.transition(models.StatePaused, func(from models.PlaybackState) bool {
		return from == models.StatePlaying
	})
	return nil
}

// Stop halts playback and flushes the decode buffer. Valid from any
// active state per the diagram in spec.md §4.2.
func (c *Client) Stop() error {
	if err := c.transport.SendStrm(StrmStop, StartParams{}); err != nil {
		return err
	}
	c.transition(models.StateStopped, func(from models.PlaybackState) bool { return true })
	return nil
}

// Flush sends strm-f without a state transition; used by the seek
// executor between stop and the next start_track.
func (c *Client) Flush() error {
	return c.transport.SendStrm(StrmFlush, StartParams{})
}

// SetVolume sends an audg frame and records the new volume.
func (c *Client) SetVolume(volume int) error {
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	gain := float64(volume) / 100.0
	if err := c.transport.SendAudioGain(gain); err != nil {
		return err
	}
	c.apply(func(s *models.PlayerStatus) { s.Volume = volume })
	return nil
}

// SetMuted toggles mute via an aude frame without altering Volume.
func (c *Client) SetMuted(muted bool) error {
	if err := c.transport.SendAudioEnable(!muted); err != nil {
		return err
	}
	c.apply(func(s *models.PlayerStatus) { s.Muted = muted })
	return nil
}

// ApplyStat folds one inbound STAT frame into status, per the event-code
// table in spec.md §4.2. It returns true if this STAT should trigger
// track-finished handling (STMu only — STMd is deliberately ignored).
func (c *Client) ApplyStat(code string, elapsedMS int64, signalStrength *int) (trackFinished bool, generation uint64) {
	c.mu.Lock()
	generation = c.status.StreamGeneration
	c.mu.Unlock()

	switch code {
	case "STMc", "STMe", "STMh":
		// connect / established / end-of-headers: no state change, just a liveness update.
		c.apply(func(s *models.PlayerStatus) {
			s.ElapsedMS = elapsedMS
			s.SignalStrength = signalStrength
		})
	case "STMs":
		c.apply(func(s *models.PlayerStatus) {
			s.ElapsedMS = elapsedMS
			s.SignalStrength = signalStrength
			if elapsedMS > 0 {
				s.State = models.StatePlaying
			}
		})
	case "STMt":
		c.apply(func(s *models.PlayerStatus) {
			s.ElapsedMS = elapsedMS
			s.SignalStrength = signalStrength
			if elapsedMS > 0 {
				s.State = models.StatePlaying
			}
		})
	case "STMp":
		c.apply(func(s *models.PlayerStatus) { s.State = models.StatePaused; s.ElapsedMS = elapsedMS })
	case "STMr":
		c.apply(func(s *models.PlayerStatus) { s.State = models.StatePlaying; s.ElapsedMS = elapsedMS })
	case "STMu":
		c.apply(func(s *models.PlayerStatus) { s.State = models.StateStopped })
		return true, generation
	case "STMd":
		// Deliberately ignored: the device may still be draining its output buffer.
	case "STMf":
		c.apply(func(s *models.PlayerStatus) { s.ElapsedMS = 0 })
	}
	return false, generation
}

// Disconnect marks the client disconnected and closes its transport.
// Called once, from the Slimproto connection's read loop on EOF/error.
func (c *Client) Disconnect() {
	c.apply(func(s *models.PlayerStatus) { s.State = models.StateDisconnected })
	if err := c.transport.Close(); err != nil {
		slog.Debug("player: close transport", "mac", c.Info.MAC, "err", err)
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("Client{%s}", c.Info.MAC)
}
