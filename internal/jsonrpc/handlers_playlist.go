package jsonrpc

import (
	"context"
	"fmt"

	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/playlist"
)

// resolveTrack turns a bare path (as LMS `playlist add <url>` passes it)
// into a PlaylistTrack, enriching it from the Library when one recognizes
// the path and falling back to a path-only entry otherwise.
func (d *Dispatcher) resolveTrack(ctx context.Context, path string) models.PlaylistTrack {
	if d.Library != nil {
		if t, ok, err := d.Library.TrackByPath(ctx, path); err == nil && ok {
			return models.PlaylistTrackFromTrack(*t)
		}
	}
	return models.PlaylistTrackFromTrack(models.Track{Path: path})
}

func (d *Dispatcher) handlePlaylist(ctx context.Context, mac models.PlayerIdentity, p Params) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	pl := d.Playlists.For(mac)

	sub, _ := p.PositionalString(0)
	switch sub {
	case "play":
		path, ok := p.PositionalString(1)
		if !ok {
			return nil, fmt.Errorf("jsonrpc: playlist play requires a url")
		}
		d.Streaming.CancelStream(mac)
		pl.Clear()
		pl.Add(d.resolveTrack(ctx, path))
		pl.JumpTo(0)
		t, _ := pl.CurrentTrack()
		if err := d.startTrack(c, mac, t.Path); err != nil {
			return nil, err
		}
		return map[string]any{}, nil

	case "add", "append":
		path, ok := p.PositionalString(1)
		if !ok {
			return nil, fmt.Errorf("jsonrpc: playlist add requires a url")
		}
		pl.Add(d.resolveTrack(ctx, path))
		return map[string]any{}, nil

	case "insert":
		path, ok := p.PositionalString(1)
		if !ok {
			return nil, fmt.Errorf("jsonrpc: playlist insert requires a url")
		}
		// No position-aware insert is modeled on the queue today; an
		// insert lands at the end same as add, which is the common
		// case (nothing else queued after the current track).
		pl.Add(d.resolveTrack(ctx, path))
		return map[string]any{}, nil

	case "delete":
		pos, ok := p.PositionalInt(1)
		if !ok {
			return nil, fmt.Errorf("jsonrpc: playlist delete requires an index")
		}
		pl.Delete(pos)
		return map[string]any{}, nil

	case "clear":
		d.Streaming.CancelStream(mac)
		if err := c.Stop(); err != nil {
			return nil, err
		}
		pl.Clear()
		return map[string]any{}, nil

	case "move":
		from, fOK := p.PositionalInt(1)
		to, tOK := p.PositionalInt(2)
		if !fOK || !tOK {
			return nil, fmt.Errorf("jsonrpc: playlist move requires from and to indices")
		}
		pl.Move(from, to)
		return map[string]any{}, nil

	case "index", "jump":
		return d.handlePlaylistJump(c, mac, pl, p)

	case "shuffle":
		mode, ok := p.PositionalInt(1)
		if !ok {
			snap := pl.Snapshot()
			return map[string]any{"_shuffle": int(snap.Shuffle)}, nil
		}
		pl.SetShuffle(models.ShuffleMode(mode))
		return map[string]any{}, nil

	case "repeat":
		mode, ok := p.PositionalInt(1)
		if !ok {
			snap := pl.Snapshot()
			return map[string]any{"_repeat": int(snap.Repeat)}, nil
		}
		pl.SetRepeat(models.RepeatMode(mode))
		return map[string]any{}, nil

	case "tracks", "loadtracks":
		return d.handleLoadTracks(ctx, c, mac, pl, p)

	default:
		return nil, fmt.Errorf("jsonrpc: unknown playlist subcommand %q", sub)
	}
}

// handlePlaylistJump implements `playlist index <n>` / `playlist jump
// <n>`: n may be absolute, or "+1"/"-1" to step relative to the current
// position. A successful jump starts the newly-current track.
func (d *Dispatcher) handlePlaylistJump(c *player.Client, mac models.PlayerIdentity, pl *playlist.Playlist, p Params) (map[string]any, error) {
	arg, ok := p.PositionalString(1)
	if !ok {
		snap := pl.Snapshot()
		return map[string]any{"playlist_cur_index": snap.CurrentIndex}, nil
	}

	var target int
	snap := pl.Snapshot()
	switch {
	case arg == "+1":
		target = snap.CurrentIndex + 1
	case arg == "-1":
		target = snap.CurrentIndex - 1
	default:
		v, ok := toInt(arg)
		if !ok {
			return nil, fmt.Errorf("jsonrpc: invalid playlist index %q", arg)
		}
		target = v
	}

	if !pl.JumpTo(target) {
		return map[string]any{}, nil
	}
	d.Streaming.CancelStream(mac)
	t, _ := pl.CurrentTrack()
	if err := d.startTrack(c, mac, t.Path); err != nil {
		return nil, err
	}
	return map[string]any{}, nil
}

// handleLoadTracks implements `playlist tracks`/`playlist loadtracks`:
// resolve track_id/album_id/artist_id/genre_id tags against the Library
// and load the resulting tracks, honoring a cmd:load|add|insert tag the
// same way handlePlaylistControl does.
func (d *Dispatcher) handleLoadTracks(ctx context.Context, c *player.Client, mac models.PlayerIdentity, pl *playlist.Playlist, p Params) (map[string]any, error) {
	tracks, err := d.resolveTracksFromTags(ctx, p)
	if err != nil {
		return nil, err
	}
	return d.applyResolvedTracks(c, mac, pl, p, tracks)
}
