package jsonrpc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/playlist"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/seek"
	"github.com/srosecker/resonance-go/internal/slimproto"
	"github.com/srosecker/resonance-go/internal/streaming"
	"github.com/srosecker/resonance-go/internal/transcode"
)

// trackFinishedSuppressWindow is guard (b) of the two track_finished
// guards spec.md §5 requires: a stale STMu for the track a manual start
// just replaced can still arrive shortly after that start, racing guard
// (a)'s generation check. Suppressing track_finished handling for this
// window after any manual start closes that race.
const trackFinishedSuppressWindow = 1 * time.Second

// ServerInfo is the static identity the dispatcher reports in
// serverstatus and playerinfo responses.
type ServerInfo struct {
	Name    string
	UUID    string
	Version string
}

// Dispatcher executes `slim.request` commands against the live control
// plane: the player registry, per-player playlists, the streaming
// coordinator, the seek coordinator, and (optionally) a real Library.
type Dispatcher struct {
	Server    ServerInfo
	Registry  *registry.Registry
	Playlists *playlist.Manager
	Streaming *streaming.Coordinator
	Seek      *seek.Coordinator
	Slim      *slimproto.Server
	Policy    *transcode.Policy
	Library   library.Library
	Artwork   library.ArtworkProvider

	suppressMu    sync.Mutex
	suppressUntil map[models.PlayerIdentity]time.Time
}

// suppressTrackFinished opens guard (b)'s window for mac: any
// track_finished event for this player delivered before the window
// closes is ignored, regardless of stream generation.
func (d *Dispatcher) suppressTrackFinished(mac models.PlayerIdentity) {
	d.suppressMu.Lock()
	defer d.suppressMu.Unlock()
	if d.suppressUntil == nil {
		d.suppressUntil = make(map[models.PlayerIdentity]time.Time)
	}
	d.suppressUntil[mac] = time.Now().Add(trackFinishedSuppressWindow)
}

func (d *Dispatcher) isTrackFinishedSuppressed(mac models.PlayerIdentity) bool {
	d.suppressMu.Lock()
	defer d.suppressMu.Unlock()
	until, ok := d.suppressUntil[mac]
	return ok && time.Now().Before(until)
}

// Dispatch executes one command array for playerID and returns the JSON
// object the handler produced. playerID is "" for server-scoped
// commands (serverstatus, ...).
func (d *Dispatcher) Dispatch(ctx context.Context, playerID string, command []any) (map[string]any, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("jsonrpc: empty command")
	}
	name, ok := command[0].(string)
	if !ok {
		return nil, fmt.Errorf("jsonrpc: command[0] must be a string")
	}
	rest := newParams(command[1:])

	switch name {
	case "serverstatus":
		return d.handleServerStatus(ctx, rest), nil
	case "players":
		return d.handlePlayers(rest), nil
	case "player":
		return d.handlePlayers(rest), nil
	case "status":
		return d.handleStatus(models.PlayerIdentity(playerID), rest)
	case "play":
		return d.handlePlay(models.PlayerIdentity(playerID))
	case "pause":
		return d.handlePause(models.PlayerIdentity(playerID))
	case "stop":
		return d.handleStop(models.PlayerIdentity(playerID))
	case "time":
		return d.handleTime(ctx, models.PlayerIdentity(playerID), rest)
	case "mixer":
		return d.handleMixer(models.PlayerIdentity(playerID), rest)
	case "playlist":
		return d.handlePlaylist(ctx, models.PlayerIdentity(playerID), rest)
	case "artists":
		return d.handleArtists(ctx, rest)
	case "albums":
		return d.handleAlbums(ctx, rest)
	case "titles":
		return d.handleTitles(ctx, rest)
	case "genres":
		return d.handleGenres(ctx, rest)
	case "roles":
		return d.handleRoles(), nil
	case "search":
		return d.handleSearch(ctx, rest)
	case "menu", "menustatus":
		return d.handleMenu(models.PlayerIdentity(playerID)), nil
	case "browselibrary":
		return d.handleBrowseLibrary(ctx, rest)
	case "playlistcontrol":
		return d.handlePlaylistControl(ctx, models.PlayerIdentity(playerID), rest)
	case "date":
		return d.handleDate(), nil
	case "sleepsettings":
		return d.handleSleepSettings(models.PlayerIdentity(playerID)), nil
	case "playerinfo":
		return d.handlePlayerInfo(models.PlayerIdentity(playerID)), nil
	default:
		return nil, fmt.Errorf("jsonrpc: unknown command %q", name)
	}
}
