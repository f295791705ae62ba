package library

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
)

// DiskArtworkCache wraps an ArtworkProvider with a persistent on-disk
// cache under <cacheDir>/artwork, keyed by sha256(kind|id). Each entry
// is three files sharing a hash prefix: .data (the image bytes), .mime
// (the content type), and .blurhash (the placeholder string, when the
// wrapped provider has one). Writes go through renameio so a crash
// mid-write can never leave a half-written cache entry for a later
// request to serve.
type DiskArtworkCache struct {
	inner ArtworkProvider
	dir   string
}

// NewDiskArtworkCache returns a cache-backed ArtworkProvider rooted at
// <cacheDir>/artwork, creating the directory if needed.
func NewDiskArtworkCache(inner ArtworkProvider, cacheDir string) (*DiskArtworkCache, error) {
	dir := filepath.Join(cacheDir, "artwork")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskArtworkCache{inner: inner, dir: dir}, nil
}

func cacheKey(kind, id string) string {
	sum := sha256.Sum256([]byte(kind + "|" + id))
	return hex.EncodeToString(sum[:])
}

func (c *DiskArtworkCache) dataPath(key string) string     { return filepath.Join(c.dir, key+".data") }
func (c *DiskArtworkCache) mimePath(key string) string      { return filepath.Join(c.dir, key+".mime") }
func (c *DiskArtworkCache) blurhashPath(key string) string { return filepath.Join(c.dir, key+".blurhash") }

func (c *DiskArtworkCache) AlbumArt(ctx context.Context, albumID string) ([]byte, string, bool) {
	return c.lookup(ctx, "album", albumID, c.inner.AlbumArt)
}

func (c *DiskArtworkCache) TrackArt(ctx context.Context, trackID string) ([]byte, string, bool) {
	return c.lookup(ctx, "track", trackID, c.inner.TrackArt)
}

func (c *DiskArtworkCache) lookup(ctx context.Context, kind, id string, fetch func(context.Context, string) ([]byte, string, bool)) ([]byte, string, bool) {
	key := cacheKey(kind, id)
	if data, err := os.ReadFile(c.dataPath(key)); err == nil {
		mime, _ := os.ReadFile(c.mimePath(key))
		return data, string(mime), true
	}

	data, mime, ok := fetch(ctx, id)
	if !ok {
		return nil, "", false
	}
	c.store(key, data, mime)
	return data, mime, true
}

func (c *DiskArtworkCache) store(key string, data []byte, mime string) {
	if err := renameio.WriteFile(c.dataPath(key), data, 0o644); err != nil {
		slog.Warn("library: artwork cache write failed", "err", err)
		return
	}
	if err := renameio.WriteFile(c.mimePath(key), []byte(mime), 0o644); err != nil {
		slog.Warn("library: artwork cache mime write failed", "err", err)
	}
}

func (c *DiskArtworkCache) BlurHash(ctx context.Context, kind, id string) (string, bool) {
	key := cacheKey(kind, id)
	if b, err := os.ReadFile(c.blurhashPath(key)); err == nil {
		return string(b), true
	}
	hash, ok := c.inner.BlurHash(ctx, kind, id)
	if !ok {
		return "", false
	}
	if err := renameio.WriteFile(c.blurhashPath(key), []byte(hash), 0o644); err != nil {
		slog.Warn("library: artwork cache blurhash write failed", "err", err)
	}
	return hash, true
}
