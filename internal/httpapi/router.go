// Package httpapi assembles the HTTP surface spec.md §4 names: the
// JSON-RPC endpoint, the Cometd long-poll endpoint, direct/transcoded
// audio streaming, artwork, and operational routes (/health,
// /api/info, /metrics), grounded on the teacher's chi router layout.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srosecker/resonance-go/internal/cometd"
	"github.com/srosecker/resonance-go/internal/jsonrpc"
	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/playlist"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/streaming"
	"github.com/srosecker/resonance-go/internal/transcode"
)

// Handlers bundles every collaborator the HTTP surface reads from.
type Handlers struct {
	Dispatcher *jsonrpc.Dispatcher
	Cometd     *cometd.Manager
	Streaming  *streaming.Coordinator
	Policy     *transcode.Policy
	Registry   *registry.Registry
	Playlists  *playlist.Manager
	Artwork    library.ArtworkProvider
	Library    library.Library

	ServerName string
	ServerUUID string
	ToolsDir   string
	StartedAt  time.Time
}

// NewRouter builds the chi router for the whole HTTP surface.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.CleanPath)

	r.Get("/health", h.health)
	r.Get("/api/info", h.info)
	r.Handle("/metrics", promhttp.Handler())

	r.With(rateLimitJSONRPC()).Post("/jsonrpc.js", h.handleJSONRPC)
	r.With(rateLimitJSONRPC()).Post("/jsonrpc", h.handleJSONRPC)

	r.Post("/cometd", h.Cometd.ServeHTTP)
	r.Post("/cometd/", h.Cometd.ServeHTTP)

	r.Get("/stream.{ext}", h.handleStream)

	r.Get("/api/artwork/album/{id}", h.handleAlbumArt)
	r.Get("/api/artwork/track/{id}", h.handleTrackArt)
	r.Get("/api/artwork/album/{id}/blurhash", h.handleAlbumBlurHash)
	r.Get("/api/artwork/track/{id}/blurhash", h.handleTrackBlurHash)
	r.Get("/music/{id}/cover", h.handleAlbumArt)
	r.Get("/music/{id}/cover.{ext}", h.handleAlbumArt)

	return r
}
