package cometd

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/metrics"
)

// RequestHandler executes a JSON-RPC `slim.request`-style command. It is
// implemented by the jsonrpc package's Dispatcher.
type RequestHandler func(playerID string, command []any) (map[string]any, error)

// Manager owns every Cometd session and fans EventBus traffic out to
// subscribed clients, per spec.md §4.7.
type Manager struct {
	handler RequestHandler

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a Manager and subscribes it to player.* on bus so
// PlayerStatus/connect/disconnect events reach Cometd clients without
// any other package needing to know Cometd exists.
func New(bus *events.Bus) *Manager {
	m := &Manager{sessions: make(map[string]*Session)}
	_, ch := bus.Subscribe("player.*")
	go m.consumeBusEvents(ch)
	return m
}

// SetRequestHandler wires the JSON-RPC dispatcher for /slim/subscribe
// and /slim/request.
func (m *Manager) SetRequestHandler(h RequestHandler) {
	m.handler = h
}

func (m *Manager) consumeBusEvents(ch <-chan events.Event) {
	for evt := range ch {
		switch evt.Channel {
		case events.ChannelPlayerStatus:
			if payload, ok := evt.Payload.(events.StatusPayload); ok {
				m.DeliverEvent(fmt.Sprintf("/%s/status", payload.PlayerMAC), nil)
				continue
			}
			m.DeliverEvent("/players", nil)
		case events.ChannelPlayerConnected, events.ChannelPlayerDisconnected:
			m.DeliverEvent("/players", nil)
		}
	}
}

func (m *Manager) getSession(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Manager) createSession(id string) *Session {
	s := newSession(id)
	m.mu.Lock()
	m.sessions[id] = s
	count := len(m.sessions)
	m.mu.Unlock()
	metrics.CometdSessions.Set(float64(count))
	return s
}

func (m *Manager) dropSession(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	count := len(m.sessions)
	m.mu.Unlock()
	metrics.CometdSessions.Set(float64(count))
}

// Handshake implements /meta/handshake.
func (m *Manager) Handshake(id string) Message {
	s := m.createSession(generateClientID())
	return Message{
		Channel:            "/meta/handshake",
		ID:                 id,
		Successful:         boolPtr(true),
		ClientID:           s.ClientID,
		Version:            "1.0",
		SupportedConnTypes: []string{"long-polling", "streaming"},
		Advice:             &Advice{Timeout: 60000, Reconnect: "retry"},
	}
}

// Connect implements /meta/connect and /meta/reconnect for the
// long-poll (non-streaming) case: wait up to timeout for an event, or
// return immediately if events are already pending. An unknown client
// id on reconnect auto-creates a session, matching real devices that
// reconnect across server restarts with their old id.
func (m *Manager) Connect(clientID, id string, timeout time.Duration) []Message {
	s, ok := m.getSession(clientID)
	if !ok {
		s = m.createSession(clientID)
	}
	s.touch()

	if pending := s.drain(); len(pending) > 0 {
		return append([]Message{successResponse("/meta/connect", clientID, id)}, pending...)
	}

	select {
	case <-s.wake:
	case <-time.After(timeout):
	}

	resp := successResponse("/meta/connect", clientID, id)
	return append([]Message{resp}, s.drain()...)
}

// Disconnect implements /meta/disconnect.
func (m *Manager) Disconnect(clientID, id string) Message {
	_, ok := m.getSession(clientID)
	if !ok {
		return failureResponse("/meta/disconnect", id, "Unknown client ID")
	}
	m.dropSession(clientID)
	return Message{Channel: "/meta/disconnect", Successful: boolPtr(true), ClientID: clientID, ID: id}
}

// Subscribe implements /meta/subscribe for one or more channels.
func (m *Manager) Subscribe(clientID, id string, channels []string) []Message {
	s, ok := m.getSession(clientID)
	if !ok {
		return []Message{failureResponse("/meta/subscribe", id, "invalid clientId")}
	}
	s.touch()
	out := make([]Message, 0, len(channels))
	for _, ch := range channels {
		s.subscribe(ch)
		out = append(out, Message{Channel: "/meta/subscribe", Successful: boolPtr(true), ClientID: clientID, Subscription: ch, ID: id})
	}
	return out
}

// Unsubscribe implements /meta/unsubscribe.
func (m *Manager) Unsubscribe(clientID, id string, channels []string) []Message {
	s, ok := m.getSession(clientID)
	if !ok {
		return []Message{failureResponse("/meta/unsubscribe", id, "invalid clientId")}
	}
	s.touch()
	out := make([]Message, 0, len(channels))
	for _, ch := range channels {
		s.unsubscribe(ch)
		out = append(out, Message{Channel: "/meta/unsubscribe", Successful: boolPtr(true), ClientID: clientID, Subscription: ch, ID: id})
	}
	return out
}

// SlimSubscribe implements /slim/subscribe: subscribe the session's
// response channel, then immediately execute the embedded request and
// deliver its result on that channel. Unknown client ids are
// auto-created — Boom and Jive devices rely on this LMS tolerance.
func (m *Manager) SlimSubscribe(clientID, id, responseChannel string, playerID string, command []any) Message {
	s, ok := m.getSession(clientID)
	if !ok {
		slog.Warn("cometd: auto-creating session from /slim/subscribe", "client_id", clientID)
		s = m.createSession(clientID)
	}
	s.touch()

	if responseChannel != "" {
		s.subscribe(responseChannel)
	}

	if command != nil && m.handler != nil {
		result, err := m.handler(playerID, command)
		if err != nil {
			slog.Warn("cometd: slim_subscribe handler error", "err", err)
		} else if responseChannel != "" && result != nil {
			s.addEvent(Message{Channel: responseChannel, ID: id, Data: result})
		}
	}

	return Message{Channel: "/slim/subscribe", Successful: boolPtr(true), ClientID: clientID, ID: id}
}

// SlimUnsubscribe implements /slim/unsubscribe, tolerant of an unknown
// client id.
func (m *Manager) SlimUnsubscribe(clientID, id, responseChannel string) Message {
	if s, ok := m.getSession(clientID); ok {
		s.touch()
		if responseChannel != "" {
			s.unsubscribe(responseChannel)
		}
	}
	return Message{Channel: "/slim/unsubscribe", Successful: boolPtr(true), ClientID: clientID, ID: id}
}

// SlimRequest implements /slim/request: execute once, deliver the result
// on responseChannel, and acknowledge.
func (m *Manager) SlimRequest(clientID, id, responseChannel string, playerID string, command []any) Message {
	s, ok := m.getSession(clientID)
	if !ok {
		s = m.createSession(clientID)
	}
	s.touch()

	resp := Message{Channel: "/slim/request", Successful: boolPtr(true), ClientID: clientID, ID: id}
	if m.handler == nil {
		return resp
	}
	result, err := m.handler(playerID, command)
	if err != nil {
		resp.Successful = boolPtr(false)
		resp.Error = err.Error()
		return resp
	}
	if responseChannel != "" && result != nil {
		s.addEvent(Message{Channel: responseChannel, ID: id, Data: result})
	}
	return resp
}

// DeliverEvent fans data out to every session subscribed to a pattern
// matching channel, per spec.md §4.7's wildcard rules. It returns the
// number of sessions that received it.
func (m *Manager) DeliverEvent(channel string, data map[string]any) int {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	delivered := 0
	msg := Message{Channel: channel, Data: data}
	for _, s := range sessions {
		if matchesAnySubscription(channel, s.subscriptionList()) {
			s.addEvent(msg)
			delivered++
		}
	}
	return delivered
}

// ExpireSessions drops sessions that haven't been touched within
// sessionExpiry. Intended to run periodically from a background ticker.
func (m *Manager) ExpireSessions() {
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.expired() {
			delete(m.sessions, id)
		}
	}
	count := len(m.sessions)
	m.mu.Unlock()
	metrics.CometdSessions.Set(float64(count))
}

// SessionCount reports how many sessions are currently tracked.
func (m *Manager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func matchesAnySubscription(channel string, patterns []string) bool {
	for _, p := range patterns {
		if matchesPattern(channel, p) {
			return true
		}
	}
	return false
}

// matchesPattern implements the three Bayeux matching rules from
// spec.md §4.7: exact equality, "*" matching exactly one segment, and
// "**" matching zero or more segments. It walks segments in a loop and
// recurses only at a "**" segment, so the recursion depth is bounded by
// the number of "**" segments in the pattern, not by the channel's depth.
func matchesPattern(channel, pattern string) bool {
	if channel == pattern {
		return true
	}

	pp := strings.Split(pattern, "/")
	cp := strings.Split(channel, "/")

	var match func(pi, ci int) bool
	match = func(pi, ci int) bool {
		for pi < len(pp) {
			if pp[pi] == "**" {
				if pi == len(pp)-1 {
					return true
				}
				for k := ci; k <= len(cp); k++ {
					if match(pi+1, k) {
						return true
					}
				}
				return false
			}
			if ci >= len(cp) {
				return false
			}
			if pp[pi] == "*" || pp[pi] == cp[ci] {
				pi++
				ci++
				continue
			}
			return false
		}
		return ci == len(cp)
	}

	return match(0, 0)
}
