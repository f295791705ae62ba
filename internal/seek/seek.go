// Package seek implements SeekCoordinator (spec.md §4.6): collapsing a
// burst of rapid "time <secs>" commands from a scrubbing user into a
// single executed seek, without ever letting two seek executors race
// each other's subprocess teardown.
package seek

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/srosecker/resonance-go/internal/metrics"
)

const (
	coalesceWindow = 20 * time.Millisecond
	lockTimeout    = 500 * time.Millisecond
)

// Executor performs the actual seek (stop, flush, queue with offset,
// start_track) once SeekCoordinator decides it is safe to run. It
// returns an error if the seek could not be carried out.
type Executor func(target float64) error

type playerState struct {
	mu         sync.Mutex // guards generation/pending only
	generation uint64
	pending    *pendingSeek

	// execSem is a 1-token semaphore guarding "single active executor at a
	// time." Unlike sync.Mutex, a select on the channel that doesn't pick
	// the receive branch never touches it, so a timed-out or cancelled
	// acquire attempt leaves the token exactly where it was.
	execSem chan struct{}
	cancel  context.CancelFunc
}

func newPlayerState() *playerState {
	s := &playerState{execSem: make(chan struct{}, 1)}
	s.execSem <- struct{}{}
	return s
}

type pendingSeek struct {
	generation uint64
	target     float64
}

// Coordinator owns per-player seek state.
type Coordinator struct {
	mu      sync.Mutex
	players map[string]*playerState
}

// New returns an empty Coordinator.
func New() *Coordinator {
	return &Coordinator{players: make(map[string]*playerState)}
}

func (c *Coordinator) stateFor(playerID string) *playerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.players[playerID]
	if !ok {
		s = newPlayerState()
		c.players[playerID] = s
	}
	return s
}

// Seek implements the six-step algorithm from spec.md §4.6. It returns
// true if the executor actually ran, false if the seek was superseded,
// dropped by lock contention, or failed.
func (c *Coordinator) Seek(ctx context.Context, playerID string, target float64, exec Executor) bool {
	s := c.stateFor(playerID)

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.pending = &pendingSeek{generation: gen, target: target}
	if s.cancel != nil {
		s.cancel()
	}
	cancelCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	select {
	case <-time.After(coalesceWindow):
	case <-ctx.Done():
		return false
	}

	s.mu.Lock()
	stillCurrent := s.pending != nil && s.pending.generation == gen
	s.mu.Unlock()
	if !stillCurrent {
		return false
	}

	select {
	case <-s.execSem:
	case <-time.After(lockTimeout):
		slog.Warn("seek: dropped, previous seek still finishing", "player", playerID)
		metrics.SeekDroppedTotal.Inc()
		return false
	case <-cancelCtx.Done():
		return false
	}
	defer func() { s.execSem <- struct{}{} }()

	s.mu.Lock()
	stillCurrent = s.pending != nil && s.pending.generation == gen
	s.mu.Unlock()
	if !stillCurrent {
		return false
	}

	if err := exec(target); err != nil {
		slog.Warn("seek: executor failed", "player", playerID, "err", err)
		return false
	}

	s.mu.Lock()
	stillCurrent = s.pending != nil && s.pending.generation == gen
	s.mu.Unlock()
	return stillCurrent
}

// CleanupPlayer cancels any pending/active seek for playerID and forgets
// its generation counter, e.g. on disconnect.
func (c *Coordinator) CleanupPlayer(playerID string) {
	c.mu.Lock()
	s, ok := c.players[playerID]
	delete(c.players, playerID)
	c.mu.Unlock()
	if !ok {
		return
	}
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.pending = nil
	s.mu.Unlock()
}
