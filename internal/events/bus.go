// Package events provides a typed publish-subscribe bus used to fan state
// changes out to the Cometd manager, the JSON-RPC dispatcher's
// serverstatus/status handlers, and anything else that wants to react to
// player or library activity without coupling to PlayerClient directly.
package events

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/srosecker/resonance-go/internal/models"
)

const subBufferSize = 32

// Event is one published message: a dotted channel name (see spec.md §3,
// e.g. "player.status", "player.track_finished") plus an arbitrary payload.
type Event struct {
	Channel string
	Payload any
}

// Bus is a non-blocking publish-subscribe event bus. Subscribers that are
// slow to consume events have events dropped rather than blocking the
// publisher; a panicking or full subscriber never affects any other
// subscriber (per-subscriber failure isolation).
type Bus struct {
	mu   sync.Mutex
	subs map[string]subscription
}

type subscription struct {
	pattern string
	ch      chan Event
}

// New creates a new, empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string]subscription)}
}

// Subscribe registers interest in channels matching pattern and returns a
// subscriber id (for Unsubscribe) and the receive side of its event queue.
//
// Pattern syntax:
//   - exact channel name: "player.connected"
//   - one-level wildcard: "player.*" matches "player.status" but not
//     "player.status.extra"
//   - "*" alone matches every channel
func (b *Bus) Subscribe(pattern string) (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New().String()
	ch := make(chan Event, subBufferSize)
	b.subs[id] = subscription{pattern: pattern, ch: ch}
	return id, ch
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish fans an event out to every subscriber whose pattern matches
// channel. Each subscriber's delivery is isolated: a full channel drops
// the event for that subscriber only.
func (b *Bus) Publish(channel string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	evt := Event{Channel: channel, Payload: payload}
	for id, sub := range b.subs {
		if !matches(sub.pattern, channel) {
			continue
		}
		select {
		case sub.ch <- evt:
		default:
			slog.Warn("events: dropping event for slow subscriber", "subscriber", id, "channel", channel)
		}
	}
}

// SubscriberCount returns the current number of subscriptions.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// matches implements the EventBus subscription-pattern rules from spec.md
// §3: exact equality, "*" alone matches everything, and "prefix.*" matches
// exactly one further segment.
func matches(pattern, channel string) bool {
	if pattern == "*" || pattern == channel {
		return true
	}
	prefix, ok := strings.CutSuffix(pattern, ".*")
	if !ok {
		return false
	}
	rest, ok := strings.CutPrefix(channel, prefix+".")
	if !ok || rest == "" {
		return false
	}
	return !strings.Contains(rest, ".")
}

// Channel name constants, grouped here so publishers and subscribers never
// hand-type a channel string (spec.md §3).
const (
	ChannelPlayerConnected    = "player.connected"
	ChannelPlayerDisconnected = "player.disconnected"
	ChannelPlayerStatus       = "player.status"
	ChannelPlayerPlaylist     = "player.playlist"
	ChannelPlayerTrackFinish  = "player.track_finished"
	ChannelLibraryScanAll     = "library.scan.*"
)

// TrackFinishedPayload is published on ChannelPlayerTrackFinish.
type TrackFinishedPayload struct {
	PlayerMAC        string
	StreamGeneration uint64
}

// PlayerLifecyclePayload is published on connect/disconnect.
type PlayerLifecyclePayload struct {
	PlayerMAC string
}

// StatusPayload is published on ChannelPlayerStatus. It carries the
// owning player's MAC alongside the status snapshot so subscribers
// (Cometd's per-player "/<mac>/status" routing) don't need to reach
// back into the registry to find out whose status this is.
type StatusPayload struct {
	PlayerMAC string
	Status    models.PlayerStatus
}
