// Package library defines the capability interfaces the control plane
// consumes from the (out-of-scope) tag scanner and artwork extractor,
// per spec.md §1 and SPEC_FULL.md §4.9. Nothing in this package touches
// a filesystem or database; it is pure contract plus small filter types.
package library

import (
	"context"

	"github.com/srosecker/resonance-go/internal/models"
)

// AlbumFilter narrows Library.Albums.
type AlbumFilter struct {
	ArtistID    string
	GenreID     string
	Year        int
	Compilation *bool
	Search      string
	Start       int
	Items       int // 0 = server default page size
}

// ArtistFilter narrows Library.Artists.
type ArtistFilter struct {
	GenreID string
	Search  string
	Start   int
	Items   int
}

// SearchFilter narrows Library.Search.
type SearchFilter struct {
	Start int
	Items int
}

// SearchResult bundles the three result buckets `search` returns.
type SearchResult struct {
	Artists []models.Artist
	Albums  []models.Album
	Tracks  []models.Track
}

// Library is the read-only catalog surface the control plane browses
// through JSON-RPC (artists/albums/titles/genres/search) and resolves
// playback paths through (Track/TrackByPath).
type Library interface {
	Track(ctx context.Context, id string) (*models.Track, bool, error)
	TrackByPath(ctx context.Context, path string) (*models.Track, bool, error)
	Albums(ctx context.Context, f AlbumFilter) ([]models.Album, error)
	Artists(ctx context.Context, f ArtistFilter) ([]models.Artist, error)
	Tracks(ctx context.Context, albumID string) ([]models.Track, error)
	Genres(ctx context.Context) ([]string, error)
	Search(ctx context.Context, q string, f SearchFilter) (SearchResult, error)
	TrackCount(ctx context.Context) (int, error)
	AlbumCount(ctx context.Context) (int, error)
	ArtistCount(ctx context.Context) (int, error)
}

// ArtworkProvider serves cover art and BlurHash placeholders for
// albums/tracks. Consumed by the /api/artwork and /music/{id}/cover
// routes.
type ArtworkProvider interface {
	AlbumArt(ctx context.Context, albumID string) (data []byte, mime string, ok bool)
	TrackArt(ctx context.Context, trackID string) (data []byte, mime string, ok bool)
	BlurHash(ctx context.Context, kind string, id string) (string, bool)
}

// Empty is a Library implementation that returns "not found" for
// everything; EmptyArtwork below is its ArtworkProvider counterpart. It lets the server start up and serve
// protocol traffic before a real scanner is wired in, and is what the
// test suite uses to exercise JSON-RPC handlers without a database.
type Empty struct{}

func (Empty) Track(context.Context, string) (*models.Track, bool, error)      { return nil, false, nil }
func (Empty) TrackByPath(context.Context, string) (*models.Track, bool, error) { return nil, false, nil }
func (Empty) Albums(context.Context, AlbumFilter) ([]models.Album, error)      { return nil, nil }
func (Empty) Artists(context.Context, ArtistFilter) ([]models.Artist, error)   { return nil, nil }
func (Empty) Tracks(context.Context, string) ([]models.Track, error)          { return nil, nil }
func (Empty) Genres(context.Context) ([]string, error)                        { return nil, nil }
func (Empty) Search(context.Context, string, SearchFilter) (SearchResult, error) {
	return SearchResult{}, nil
}
func (Empty) TrackCount(context.Context) (int, error)  { return 0, nil }
func (Empty) AlbumCount(context.Context) (int, error)  { return 0, nil }
func (Empty) ArtistCount(context.Context) (int, error) { return 0, nil }

type EmptyArtwork struct{}

func (EmptyArtwork) AlbumArt(context.Context, string) ([]byte, string, bool) { return nil, "", false }
func (EmptyArtwork) TrackArt(context.Context, string) ([]byte, string, bool) { return nil, "", false }
func (EmptyArtwork) BlurHash(context.Context, string, string) (string, bool) { return "", false }
