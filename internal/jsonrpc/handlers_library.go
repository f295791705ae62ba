package jsonrpc

import (
	"context"

	"github.com/srosecker/resonance-go/internal/library"
)

// pagingFromParams builds the start/items paging pair every `*`/`search`
// LMS browse command shares, defaulting items to the full result set
// when the client didn't ask for a page.
func pagingFromParams(p Params) (start, items int) {
	start, _ = p.PositionalInt(0)
	items, _ = p.PositionalInt(1)
	return start, items
}

func page[T any](all []T, start, items int) []T {
	if start < 0 {
		start = 0
	}
	if start >= len(all) {
		return nil
	}
	end := len(all)
	if items > 0 && start+items < end {
		end = start + items
	}
	return all[start:end]
}

func (d *Dispatcher) handleArtists(ctx context.Context, p Params) (map[string]any, error) {
	start, items := pagingFromParams(p)
	filter := library.ArtistFilter{Start: start, Items: items}
	if genre, ok := p.Tag("genre_id"); ok {
		filter.GenreID = genre
	}
	if search, ok := p.Tag("search"); ok {
		filter.Search = search
	}

	artists, err := d.Library.Artists(ctx, filter)
	if err != nil {
		return nil, err
	}
	loop := make([]map[string]any, 0, len(artists))
	for _, a := range artists {
		loop = append(loop, map[string]any{"id": a.ID, "artist": a.Name})
	}
	return map[string]any{"count": len(artists), "artists_loop": loop}, nil
}

func (d *Dispatcher) handleAlbums(ctx context.Context, p Params) (map[string]any, error) {
	start, items := pagingFromParams(p)
	filter := library.AlbumFilter{Start: start, Items: items}
	if artist, ok := p.Tag("artist_id"); ok {
		filter.ArtistID = artist
	}
	if genre, ok := p.Tag("genre_id"); ok {
		filter.GenreID = genre
	}
	if year, ok := p.TagInt("year"); ok {
		filter.Year = year
	}
	if search, ok := p.Tag("search"); ok {
		filter.Search = search
	}

	albums, err := d.Library.Albums(ctx, filter)
	if err != nil {
		return nil, err
	}
	loop := make([]map[string]any, 0, len(albums))
	for _, a := range albums {
		loop = append(loop, map[string]any{
			"id":          a.ID,
			"album":       a.Title,
			"artist":      a.Artist,
			"artist_id":   a.ArtistID,
			"year":        a.Year,
			"artwork_track_id": a.ID,
		})
	}
	return map[string]any{"count": len(albums), "albums_loop": loop}, nil
}

func (d *Dispatcher) handleTitles(ctx context.Context, p Params) (map[string]any, error) {
	albumID, _ := p.Tag("album_id")
	tracks, err := d.Library.Tracks(ctx, albumID)
	if err != nil {
		return nil, err
	}
	start, items := pagingFromParams(p)
	tracks = page(tracks, start, items)
	loop := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		loop = append(loop, map[string]any{
			"id":       t.ID,
			"title":    t.Title,
			"artist":   t.Artist,
			"album":    t.Album,
			"album_id": t.AlbumID,
			"tracknum": t.TrackNo,
			"duration": float64(t.DurationMS) / 1000.0,
			"url":      t.Path,
		})
	}
	return map[string]any{"count": len(tracks), "titles_loop": loop}, nil
}

func (d *Dispatcher) handleGenres(ctx context.Context, p Params) (map[string]any, error) {
	genres, err := d.Library.Genres(ctx)
	if err != nil {
		return nil, err
	}
	start, items := pagingFromParams(p)
	genres = page(genres, start, items)
	loop := make([]map[string]any, 0, len(genres))
	for i, g := range genres {
		loop = append(loop, map[string]any{"id": i, "genre": g})
	}
	return map[string]any{"count": len(genres), "genres_loop": loop}, nil
}

// handleRoles answers the fixed `roles` command LMS clients poll to
// learn which contributor roles exist (artist/composer/conductor/...).
// There is no per-library configuration for this in Resonance; the
// answer is the fixed LMS role vocabulary.
func (d *Dispatcher) handleRoles() map[string]any {
	roles := []string{"ARTIST", "COMPOSER", "CONDUCTOR", "BAND", "ALBUMARTIST", "TRACKARTIST"}
	return map[string]any{"roles_loop": roles}
}

func (d *Dispatcher) handleSearch(ctx context.Context, p Params) (map[string]any, error) {
	term, _ := p.PositionalString(0)
	start, items := pagingFromParams(p)
	result, err := d.Library.Search(ctx, term, library.SearchFilter{Start: start, Items: items})
	if err != nil {
		return nil, err
	}

	artistsLoop := make([]map[string]any, 0, len(result.Artists))
	for _, a := range result.Artists {
		artistsLoop = append(artistsLoop, map[string]any{"id": a.ID, "artist": a.Name})
	}
	albumsLoop := make([]map[string]any, 0, len(result.Albums))
	for _, a := range result.Albums {
		albumsLoop = append(albumsLoop, map[string]any{"id": a.ID, "album": a.Title})
	}
	tracksLoop := make([]map[string]any, 0, len(result.Tracks))
	for _, t := range result.Tracks {
		tracksLoop = append(tracksLoop, map[string]any{"id": t.ID, "title": t.Title, "url": t.Path})
	}

	return map[string]any{
		"artists_loop": artistsLoop,
		"albums_loop":  albumsLoop,
		"tracks_loop":  tracksLoop,
		"count":        len(result.Artists) + len(result.Albums) + len(result.Tracks),
	}, nil
}

// handleBrowseLibrary serves the Jive/default-skin hierarchical browse
// used by touch-style UIs: folder -> genres -> artists -> albums ->
// tracks, keyed off a `mode` tag. It delegates to the same Library calls
// the flat artists/albums/titles commands use and wraps them as
// `item_loop` entries carrying an `actions` map so a UI can drill down.
func (d *Dispatcher) handleBrowseLibrary(ctx context.Context, p Params) (map[string]any, error) {
	mode, _ := p.Tag("mode")
	switch mode {
	case "artists":
		res, err := d.handleArtists(ctx, p)
		if err != nil {
			return nil, err
		}
		return browseWrap(res, "artists_loop", "artist"), nil
	case "albums":
		res, err := d.handleAlbums(ctx, p)
		if err != nil {
			return nil, err
		}
		return browseWrap(res, "albums_loop", "album"), nil
	case "tracks":
		res, err := d.handleTitles(ctx, p)
		if err != nil {
			return nil, err
		}
		return browseWrap(res, "titles_loop", "title"), nil
	case "genres":
		res, err := d.handleGenres(ctx, p)
		if err != nil {
			return nil, err
		}
		return browseWrap(res, "genres_loop", "genre"), nil
	default:
		return map[string]any{
			"count": 4,
			"item_loop": []map[string]any{
				{"text": "Genres", "actions": map[string]any{"go": map[string]any{"cmd": []string{"browselibrary", "items"}, "params": map[string]any{"mode": "genres"}}}},
				{"text": "Artists", "actions": map[string]any{"go": map[string]any{"cmd": []string{"browselibrary", "items"}, "params": map[string]any{"mode": "artists"}}}},
				{"text": "Albums", "actions": map[string]any{"go": map[string]any{"cmd": []string{"browselibrary", "items"}, "params": map[string]any{"mode": "albums"}}}},
				{"text": "Songs", "actions": map[string]any{"go": map[string]any{"cmd": []string{"browselibrary", "items"}, "params": map[string]any{"mode": "tracks"}}}},
			},
		}, nil
	}
}

func browseWrap(res map[string]any, loopKey, labelField string) map[string]any {
	loop, _ := res[loopKey].([]map[string]any)
	items := make([]map[string]any, 0, len(loop))
	for _, e := range loop {
		text, _ := e[labelField].(string)
		items = append(items, map[string]any{"text": text, "params": e})
	}
	return map[string]any{"count": len(items), "item_loop": items}
}
