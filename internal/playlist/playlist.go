// Package playlist implements the per-player queue: an ordered track
// list, a current-index cursor, and repeat/shuffle modes, with the
// invariant that current_index always identifies the same logical track
// across a shuffle toggle (spec.md §3, §8 invariants 4 and 5).
package playlist

import (
	"math/rand/v2"
	"sync"

	"github.com/srosecker/resonance-go/internal/models"
)

// Playlist is one player's queue. All mutation happens under mu; callers
// get value-copy snapshots so they never observe a half-built slice.
type Playlist struct {
	mu sync.Mutex

	tracks  []models.PlaylistTrack
	order   []int // indices into tracks, in playback order (identity order when shuffle is off)
	current int    // index into order, not into tracks

	repeat  models.RepeatMode
	shuffle models.ShuffleMode
}

// New returns an empty Playlist.
func New() *Playlist {
	return &Playlist{current: -1}
}

// Snapshot is a read-only view returned to callers (JSON-RPC `status`,
// Cometd payloads).
type Snapshot struct {
	Tracks       []models.PlaylistTrack
	CurrentIndex int // -1 if empty
	Repeat       models.RepeatMode
	Shuffle      models.ShuffleMode
}

func (p *Playlist) snapshotLocked() Snapshot {
	ordered := make([]models.PlaylistTrack, len(p.order))
	for i, idx := range p.order {
		ordered[i] = p.tracks[idx]
	}
	return Snapshot{
		Tracks:       ordered,
		CurrentIndex: p.current,
		Repeat:       p.repeat,
		Shuffle:      p.shuffle,
	}
}

// Snapshot returns the current playlist state.
func (p *Playlist) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

// CurrentTrack returns the track at the current cursor, if any.
func (p *Playlist) CurrentTrack() (models.PlaylistTrack, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current < 0 || p.current >= len(p.order) {
		return models.PlaylistTrack{}, false
	}
	return p.tracks[p.order[p.current]], true
}

// Add appends tracks to the end of the identity order and, if shuffle is
// on, to a random position in play order.
func (p *Playlist) Add(tracks ...models.PlaylistTrack) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range tracks {
		idx := len(p.tracks)
		p.tracks = append(p.tracks, t)
		if p.shuffle == models.ShuffleOn && len(p.order) > 0 {
			pos := rand.IntN(len(p.order) + 1)
			p.order = append(p.order, 0)
			copy(p.order[pos+1:], p.order[pos:])
			p.order[pos] = idx
		} else {
			p.order = append(p.order, idx)
		}
	}
	if p.current < 0 && len(p.order) > 0 {
		p.current = 0
	}
}

// Clear empties the playlist entirely.
func (p *Playlist) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = nil
	p.order = nil
	p.current = -1
}

// Delete removes the track at play-order position pos.
func (p *Playlist) Delete(pos int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 || pos >= len(p.order) {
		return
	}
	removedIdx := p.order[pos]
	p.order = append(p.order[:pos], p.order[pos+1:]...)
	p.tracks = append(p.tracks[:removedIdx], p.tracks[removedIdx+1:]...)
	for i := range p.order {
		if p.order[i] > removedIdx {
			p.order[i]--
		}
	}
	switch {
	case len(p.order) == 0:
		p.current = -1
	case pos < p.current:
		p.current--
	case pos == p.current && p.current >= len(p.order):
		p.current = len(p.order) - 1
	}
}

// Move relocates the track at play-order position from to position to.
func (p *Playlist) Move(from, to int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if from < 0 || from >= len(p.order) || to < 0 || to >= len(p.order) || from == to {
		return
	}
	cur := p.order[p.current]
	v := p.order[from]
	p.order = append(p.order[:from], p.order[from+1:]...)
	p.order = append(p.order[:to], append([]int{v}, p.order[to:]...)...)
	for i, idx := range p.order {
		if idx == cur {
			p.current = i
			break
		}
	}
}

// JumpTo moves the cursor directly to play-order position pos.
func (p *Playlist) JumpTo(pos int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pos < 0 || pos >= len(p.order) {
		return false
	}
	p.current = pos
	return true
}

// SetRepeat sets the repeat mode.
func (p *Playlist) SetRepeat(mode models.RepeatMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.repeat = mode
}

// SetShuffle toggles shuffle. Turning it on moves the current track to
// index 0 and shuffles the rest around it; turning it off restores
// identity order, rebinding current to wherever that identity position
// now falls (spec.md §3, §8 invariant 5).
func (p *Playlist) SetShuffle(mode models.ShuffleMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shuffle == mode {
		return
	}
	p.shuffle = mode

	var curTrackIdx = -1
	if p.current >= 0 && p.current < len(p.order) {
		curTrackIdx = p.order[p.current]
	}

	if mode == models.ShuffleOff {
		p.order = make([]int, len(p.tracks))
		for i := range p.tracks {
			p.order[i] = i
		}
		if curTrackIdx >= 0 {
			for i, idx := range p.order {
				if idx == curTrackIdx {
					p.current = i
					break
				}
			}
		}
		return
	}

	rest := make([]int, 0, len(p.order))
	for _, idx := range p.order {
		if idx != curTrackIdx {
			rest = append(rest, idx)
		}
	}
	rand.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })

	if curTrackIdx >= 0 {
		p.order = append([]int{curTrackIdx}, rest...)
		p.current = 0
	} else {
		p.order = rest
	}
}

// Advance moves to the next track honoring repeat mode. It returns the
// new current track and whether playback should continue (false when
// RepeatOff runs off the end of the list).
func (p *Playlist) Advance() (models.PlaylistTrack, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return models.PlaylistTrack{}, false
	}
	if p.repeat == models.RepeatOne {
		return p.tracks[p.order[p.current]], true
	}
	next := p.current + 1
	if next >= len(p.order) {
		if p.repeat != models.RepeatAll {
			return models.PlaylistTrack{}, false
		}
		next = 0
	}
	p.current = next
	return p.tracks[p.order[p.current]], true
}

// Len returns the number of tracks queued.
func (p *Playlist) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}
