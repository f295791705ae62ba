package jsonrpc

import (
	"context"
	"fmt"
	"time"

	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/playlist"
)

// resolveTracksFromTags answers the genre_id/album_id/artist_id/track_id
// tags shared by `playlistcontrol` and `playlist loadtracks`.
func (d *Dispatcher) resolveTracksFromTags(ctx context.Context, p Params) ([]models.PlaylistTrack, error) {
	if trackID, ok := p.Tag("track_id"); ok {
		t, ok, err := d.Library.Track(ctx, trackID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("jsonrpc: unknown track_id %q", trackID)
		}
		return []models.PlaylistTrack{models.PlaylistTrackFromTrack(*t)}, nil
	}

	if albumID, ok := p.Tag("album_id"); ok {
		tracks, err := d.Library.Tracks(ctx, albumID)
		if err != nil {
			return nil, err
		}
		return trackListToPlaylist(tracks), nil
	}

	if artistID, ok := p.Tag("artist_id"); ok {
		albums, err := d.Library.Albums(ctx, library.AlbumFilter{ArtistID: artistID})
		if err != nil {
			return nil, err
		}
		var out []models.PlaylistTrack
		for _, a := range albums {
			tracks, err := d.Library.Tracks(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, trackListToPlaylist(tracks)...)
		}
		return out, nil
	}

	if genreID, ok := p.Tag("genre_id"); ok {
		albums, err := d.Library.Albums(ctx, library.AlbumFilter{GenreID: genreID})
		if err != nil {
			return nil, err
		}
		var out []models.PlaylistTrack
		for _, a := range albums {
			tracks, err := d.Library.Tracks(ctx, a.ID)
			if err != nil {
				return nil, err
			}
			out = append(out, trackListToPlaylist(tracks)...)
		}
		return out, nil
	}

	return nil, fmt.Errorf("jsonrpc: no track_id/album_id/artist_id/genre_id tag given")
}

func trackListToPlaylist(tracks []models.Track) []models.PlaylistTrack {
	out := make([]models.PlaylistTrack, len(tracks))
	for i, t := range tracks {
		out[i] = models.PlaylistTrackFromTrack(t)
	}
	return out
}

// applyResolvedTracks applies a resolved track list to pl per the
// cmd:load|add|insert tag convention `playlistcontrol` and `playlist
// loadtracks` share. load replaces the queue and starts playback;
// add/insert append without disturbing what's already playing.
func (d *Dispatcher) applyResolvedTracks(c *player.Client, mac models.PlayerIdentity, pl *playlist.Playlist, p Params, tracks []models.PlaylistTrack) (map[string]any, error) {
	cmd, _ := p.Tag("cmd")
	if cmd == "" {
		cmd = "load"
	}

	switch cmd {
	case "add", "insert":
		pl.Add(tracks...)
		return map[string]any{"count": len(tracks)}, nil
	default: // "load"
		d.Streaming.CancelStream(mac)
		pl.Clear()
		pl.Add(tracks...)
		pl.JumpTo(0)
		if t, ok := pl.CurrentTrack(); ok {
			if err := d.startTrack(c, mac, t.Path); err != nil {
				return nil, err
			}
		}
		return map[string]any{"count": len(tracks)}, nil
	}
}

// handlePlaylistControl implements the `playlistcontrol` command mobile
// apps and the web UI use for "play this album"/"add this artist"
// actions: a cmd tag plus exactly one of track_id/album_id/artist_id/
// genre_id.
func (d *Dispatcher) handlePlaylistControl(ctx context.Context, mac models.PlayerIdentity, p Params) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	tracks, err := d.resolveTracksFromTags(ctx, p)
	if err != nil {
		return nil, err
	}
	pl := d.Playlists.For(mac)
	return d.applyResolvedTracks(c, mac, pl, p, tracks)
}

// handleDate answers the `date` command some clients poll at startup;
// LMS itself just reports the server's wall clock.
func (d *Dispatcher) handleDate() map[string]any {
	now := time.Now().UTC()
	return map[string]any{
		"date":     now.Format(time.RFC3339),
		"date_utc": now.Unix(),
	}
}

// handleSleepSettings answers the per-player sleep timer query. Sleep
// timers are not implemented as a scheduled feature — the response
// always reports no active timer, which is what LMS reports for a
// player that never had one armed.
func (d *Dispatcher) handleSleepSettings(mac models.PlayerIdentity) map[string]any {
	return map[string]any{
		"will_sleep_in": -1,
		"sleepsetting":  -1,
	}
}

// handlePlayerInfo reports the static identity of one connected player.
func (d *Dispatcher) handlePlayerInfo(mac models.PlayerIdentity) map[string]any {
	c, ok := d.Registry.Get(mac)
	if !ok {
		return map[string]any{}
	}
	status := c.Snapshot()
	return map[string]any{
		"playerid":  string(c.Info.MAC),
		"name":      string(c.Info.MAC),
		"model":     c.Info.DeviceTypeName,
		"uuid":      c.Info.UUID,
		"firmware":  c.Info.FirmwareRev,
		"power":     status.State != models.StateStopped,
		"connected": status.State != models.StateDisconnected,
	}
}

// handleMenu answers the Jive `menu`/`menustatus` top-level surface a
// Squeezebox Controller/Touch renders as its home screen.
func (d *Dispatcher) handleMenu(mac models.PlayerIdentity) map[string]any {
	return map[string]any{
		"count": 3,
		"item_loop": []map[string]any{
			{"text": "Now Playing", "node": "home", "weight": 10},
			{"text": "My Music", "node": "home", "weight": 20,
				"actions": map[string]any{"go": map[string]any{"cmd": []string{"browselibrary", "items"}}}},
			{"text": "Settings", "node": "home", "weight": 100},
		},
	}
}
