package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleAlbumArt serves /api/artwork/album/{id} and the
// /music/{id}/cover(.ext) alias LMS-compatible clients use for
// thumbnails embedded in browse results.
func (h *Handlers) handleAlbumArt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.Artwork == nil {
		http.NotFound(w, r)
		return
	}
	data, mime, ok := h.Artwork.AlbumArt(r.Context(), id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// handleTrackArt serves /api/artwork/track/{id} for tracks carrying
// embedded art that differs from their album's.
func (h *Handlers) handleTrackArt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.Artwork == nil {
		http.NotFound(w, r)
		return
	}
	data, mime, ok := h.Artwork.TrackArt(r.Context(), id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

// handleAlbumBlurHash serves GET /api/artwork/album/{id}/blurhash.
func (h *Handlers) handleAlbumBlurHash(w http.ResponseWriter, r *http.Request) {
	h.handleBlurHash(w, r, "album")
}

// handleTrackBlurHash serves GET /api/artwork/track/{id}/blurhash.
func (h *Handlers) handleTrackBlurHash(w http.ResponseWriter, r *http.Request) {
	h.handleBlurHash(w, r, "track")
}

// handleBlurHash serves spec.md §6's `{blurhash: "…"|null}` placeholder
// endpoint. Unlike the image routes, a missing hash is reported with a
// null field rather than 404: the artwork itself may still exist even
// when no BlurHash has been computed for it yet.
func (h *Handlers) handleBlurHash(w http.ResponseWriter, r *http.Request, kind string) {
	id := chi.URLParam(r, "id")
	if h.Artwork == nil {
		http.NotFound(w, r)
		return
	}
	hash, ok := h.Artwork.BlurHash(r.Context(), kind, id)
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = w.Write([]byte(`{"blurhash":null}`))
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"blurhash": hash})
}
