package library

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingArtwork struct {
	calls int
	data  []byte
	mime  string
	hash  string
}

func (c *countingArtwork) AlbumArt(context.Context, string) ([]byte, string, bool) {
	c.calls++
	return c.data, c.mime, true
}
func (c *countingArtwork) TrackArt(context.Context, string) ([]byte, string, bool) {
	return c.AlbumArt(context.Background(), "")
}
func (c *countingArtwork) BlurHash(context.Context, string, string) (string, bool) {
	c.calls++
	return c.hash, true
}

func TestDiskArtworkCache_CachesAfterFirstFetch(t *testing.T) {
	dir := t.TempDir()
	inner := &countingArtwork{data: []byte("jpeg-bytes"), mime: "image/jpeg"}
	cache, err := NewDiskArtworkCache(inner, dir)
	require.NoError(t, err)

	data, mime, ok := cache.AlbumArt(context.Background(), "album-1")
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, 1, inner.calls)

	data, mime, ok = cache.AlbumArt(context.Background(), "album-1")
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(data))
	assert.Equal(t, "image/jpeg", mime)
	assert.Equal(t, 1, inner.calls, "a second lookup for the same id must be served from disk, not the inner provider")
}

func TestDiskArtworkCache_DistinctKindsDoNotCollide(t *testing.T) {
	dir := t.TempDir()
	inner := &countingArtwork{data: []byte("x"), mime: "image/jpeg"}
	cache, err := NewDiskArtworkCache(inner, dir)
	require.NoError(t, err)

	_, _, _ = cache.AlbumArt(context.Background(), "same-id")
	_, _, _ = cache.TrackArt(context.Background(), "same-id")
	assert.Equal(t, 2, inner.calls, "album and track caches for the same id must be distinct entries")
}

func TestDiskArtworkCache_BlurHashCaches(t *testing.T) {
	dir := t.TempDir()
	inner := &countingArtwork{hash: "LKO2?U%2Tw=w"}
	cache, err := NewDiskArtworkCache(inner, dir)
	require.NoError(t, err)

	hash, ok := cache.BlurHash(context.Background(), "album", "album-1")
	require.True(t, ok)
	assert.Equal(t, "LKO2?U%2Tw=w", hash)

	hash, ok = cache.BlurHash(context.Background(), "album", "album-1")
	require.True(t, ok)
	assert.Equal(t, "LKO2?U%2Tw=w", hash)
	assert.Equal(t, 1, inner.calls)
}

func TestDiskArtworkCache_MissPropagatesFromInner(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskArtworkCache(EmptyArtwork{}, dir)
	require.NoError(t, err)

	_, _, ok := cache.AlbumArt(context.Background(), "nope")
	assert.False(t, ok)
}
