// Package cometd implements the Bayeux-subset long-poll protocol from
// spec.md §4.7: handshake/connect/subscribe over HTTP POST, plus the
// LMS-style /slim/* channels that Boom and Jive devices rely on.
package cometd

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"
)

const sessionExpiry = 180 * time.Second

// Session is one Cometd client's state: its subscriptions and a queue
// of events waiting to be delivered on its next /meta/connect.
type Session struct {
	ClientID string

	mu            sync.Mutex
	subscriptions map[string]bool
	pending       []Message
	lastSeen      time.Time
	wake          chan struct{}
}

func newSession(id string) *Session {
	return &Session{
		ClientID:      id,
		subscriptions: make(map[string]bool),
		lastSeen:      time.Now(),
		wake:          make(chan struct{}, 1),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastSeen) > sessionExpiry
}

func (s *Session) subscribe(channel string) {
	s.mu.Lock()
	s.subscriptions[channel] = true
	s.mu.Unlock()
}

func (s *Session) unsubscribe(channel string) {
	s.mu.Lock()
	delete(s.subscriptions, channel)
	s.mu.Unlock()
}

func (s *Session) subscriptionList() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subscriptions))
	for ch := range s.subscriptions {
		out = append(out, ch)
	}
	return out
}

func (s *Session) addEvent(msg Message) {
	s.mu.Lock()
	s.pending = append(s.pending, msg)
	s.mu.Unlock()
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) drain() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.pending) == 0 {
		return nil
	}
	out := s.pending
	s.pending = nil
	return out
}

func generateClientID() string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
