package jsonrpc

import (
	"context"
	"fmt"

	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/playlist"
)

func (d *Dispatcher) handleServerStatus(ctx context.Context, p Params) map[string]any {
	players := d.Registry.All()
	playersLoop := make([]map[string]any, 0, len(players))
	for _, c := range players {
		playersLoop = append(playersLoop, playerSummary(c))
	}

	result := map[string]any{
		"version":      d.Server.Version,
		"uuid":         d.Server.UUID,
		"player count": len(players),
		"players_loop": playersLoop,
	}

	if d.Library != nil {
		if n, err := d.Library.TrackCount(ctx); err == nil {
			result["info total songs"] = n
		}
		if n, err := d.Library.AlbumCount(ctx); err == nil {
			result["info total albums"] = n
		}
		if n, err := d.Library.ArtistCount(ctx); err == nil {
			result["info total artists"] = n
		}
	}
	return result
}

func playerSummary(c *player.Client) map[string]any {
	status := c.Snapshot()
	return map[string]any{
		"playerid":  string(c.Info.MAC),
		"name":      string(c.Info.MAC),
		"model":     c.Info.DeviceTypeName,
		"power":     status.State != models.StateStopped,
		"connected": status.State != models.StateDisconnected,
	}
}

func (d *Dispatcher) handlePlayers(p Params) map[string]any {
	all := d.Registry.All()
	loop := make([]map[string]any, 0, len(all))
	for _, c := range all {
		loop = append(loop, playerSummary(c))
	}
	return map[string]any{"count": len(loop), "players_loop": loop}
}

func (d *Dispatcher) requirePlayer(mac models.PlayerIdentity) (*player.Client, error) {
	c, ok := d.Registry.Get(mac)
	if !ok {
		return nil, fmt.Errorf("jsonrpc: unknown player %q", mac)
	}
	return c, nil
}

func (d *Dispatcher) handleStatus(mac models.PlayerIdentity, p Params) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	status := c.Snapshot()
	pl := d.Playlists.For(mac)
	snap := pl.Snapshot()

	mode := "stop"
	switch status.State {
	case models.StatePlaying, models.StateBuffering:
		mode = "play"
	case models.StatePaused:
		mode = "pause"
	}

	result := map[string]any{
		"mode":               mode,
		"time":               float64(status.ElapsedMS) / 1000.0,
		"duration":           float64(status.DurationMS) / 1000.0,
		"mixer volume":       status.Volume,
		"playlist_cur_index": snap.CurrentIndex,
		"playlist index":     snap.CurrentIndex,
		"playlist shuffle":   int(snap.Shuffle),
		"playlist repeat":    int(snap.Repeat),
		"playlist_tracks":    len(snap.Tracks),
	}

	if t, ok := pl.CurrentTrack(); ok {
		result["currentTrack"] = map[string]any{
			"title":  t.Title,
			"artist": t.Artist,
			"album":  t.Album,
		}
	}

	start, items, wantsAll := playlistRange(p)
	if s, _ := p.PositionalString(0); s == "-" {
		start, wantsAll = snap.CurrentIndex, false
		if items <= 0 {
			items = 1
		}
	}
	if wantsAll {
		result["playlist_loop"] = playlistLoop(snap, 0, len(snap.Tracks))
	} else {
		result["playlist_loop"] = playlistLoop(snap, start, items)
	}
	return result, nil
}

// playlistRange reads the `start`/`items` positional ints; with neither
// present it reports the whole playlist. A "-" start reads as no int here;
// handleStatus maps it to the current track only.
func playlistRange(p Params) (start, items int, all bool) {
	s, sOK := p.PositionalInt(0)
	n, nOK := p.PositionalInt(1)
	if !sOK && !nOK {
		return 0, 0, true
	}
	return s, n, false
}

func playlistLoop(snap playlist.Snapshot, start, items int) []map[string]any {
	if items <= 0 {
		items = len(snap.Tracks)
	}
	end := start + items
	if end > len(snap.Tracks) {
		end = len(snap.Tracks)
	}
	if start > end {
		start = end
	}
	if start < 0 {
		start = 0
	}
	out := make([]map[string]any, 0, end-start)
	for i := start; i < end; i++ {
		t := snap.Tracks[i]
		out = append(out, map[string]any{
			"title":  t.Title,
			"artist": t.Artist,
			"album":  t.Album,
			"url":    t.Path,
		})
	}
	return out
}

func (d *Dispatcher) handlePlay(mac models.PlayerIdentity) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	status := c.Snapshot()
	pl := d.Playlists.For(mac)
	if status.State == models.StateStopped && pl.Len() > 0 {
		if t, ok := pl.CurrentTrack(); ok {
			if err := d.startTrack(c, mac, t.Path); err != nil {
				return nil, err
			}
			return map[string]any{}, nil
		}
	}
	return map[string]any{}, c.Play()
}

func (d *Dispatcher) handlePause(mac models.PlayerIdentity) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	return map[string]any{}, c.Pause()
}

func (d *Dispatcher) handleStop(mac models.PlayerIdentity) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	d.Streaming.CancelStream(mac)
	return map[string]any{}, c.Stop()
}

func (d *Dispatcher) handleMixer(mac models.PlayerIdentity, p Params) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	sub, _ := p.PositionalString(0)
	switch sub {
	case "volume":
		arg, _ := p.PositionalString(1)
		status := c.Snapshot()
		vol, delta := parseRelative(arg, status.Volume)
		if err := c.SetVolume(vol); err != nil {
			return nil, err
		}
		return map[string]any{"volume": vol, "relative": delta}, nil
	case "muting":
		arg, _ := p.PositionalInt(1)
		muted := arg != 0
		if err := c.SetMuted(muted); err != nil {
			return nil, err
		}
		return map[string]any{"muting": muted}, nil
	default:
		return nil, fmt.Errorf("jsonrpc: unknown mixer subcommand %q", sub)
	}
}

// parseRelative resolves a `mixer volume` argument that may be absolute
// ("42") or relative ("+5" / "-5").
func parseRelative(arg string, current int) (newVal int, wasRelative bool) {
	if arg == "" {
		return current, false
	}
	if arg[0] == '+' || arg[0] == '-' {
		delta, ok := toInt(arg)
		if !ok {
			return current, false
		}
		return clamp(current+delta, 0, 100), true
	}
	v, ok := toInt(arg)
	if !ok {
		return current, false
	}
	return clamp(v, 0, 100), false
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// startTrack is the chokepoint for every *manual* track start (play,
// playlist jump, seek). It opens guard (b)'s suppression window before
// starting so a stale STMu from the track being replaced can't race the
// new one into an unwanted auto-advance. HandleTrackFinished's own
// auto-advance start bypasses this wrapper and calls d.Slim.StartTrack
// directly, since it must not suppress its own track's legitimate finish.
func (d *Dispatcher) startTrack(c *player.Client, mac models.PlayerIdentity, path string) error {
	d.suppressTrackFinished(mac)
	return d.Slim.StartTrack(c, mac, path)
}
