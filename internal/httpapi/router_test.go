package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/cometd"
	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/jsonrpc"
	"github.com/srosecker/resonance-go/internal/library"
	"github.com/srosecker/resonance-go/internal/playlist"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/seek"
	"github.com/srosecker/resonance-go/internal/streaming"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	bus := events.New()
	reg := registry.New(bus)
	playlists := playlist.NewManager()
	stream := streaming.New(playlists.CurrentTrackPath)
	seekCoord := seek.New()
	cometdMgr := cometd.New(bus)

	dispatcher := &jsonrpc.Dispatcher{
		Server:    jsonrpc.ServerInfo{Name: "resonance-test", UUID: "uuid-1", Version: "1.0.0"},
		Registry:  reg,
		Playlists: playlists,
		Streaming: stream,
		Seek:      seekCoord,
		Library:   library.Empty{},
		Artwork:   library.EmptyArtwork{},
	}
	cometdMgr.SetRequestHandler(func(playerID string, command []any) (map[string]any, error) {
		return dispatcher.Dispatch(context.Background(), playerID, command)
	})

	return &Handlers{
		Dispatcher: dispatcher,
		Cometd:     cometdMgr,
		Streaming:  stream,
		Registry:   reg,
		Playlists:  playlists,
		Artwork:    library.EmptyArtwork{},
		Library:    library.Empty{},
		ServerName: "resonance-test",
		ServerUUID: "uuid-1",
		StartedAt:  time.Now(),
	}
}

func TestHealth_ReturnsOK(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestInfo_ReportsIdentity(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/info", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Equal(t, "uuid-1", body["uuid"])
	assert.Equal(t, "resonance-test", body["name"])
}

func TestMetrics_Exposed(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusOK, rw.Code)
}

func TestJSONRPC_ServerStatus(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	body, _ := json.Marshal(map[string]any{
		"id":     1,
		"method": "slim.request",
		"params": []any{"", []any{"serverstatus"}},
	})
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewReader(body))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, "uuid-1", resp.Result["uuid"])
}

func TestJSONRPC_MissingParamsReturnsError(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	body, _ := json.Marshal(map[string]any{"id": 1, "method": "slim.request", "params": []any{}})
	req := httptest.NewRequest(http.MethodPost, "/jsonrpc", bytes.NewReader(body))
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	var resp rpcResponse
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Error)
}

func TestArtwork_MissingIDReturns404(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/artwork/album/nope", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)
	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestArtworkBlurHash_NoHashReturnsNullField(t *testing.T) {
	h := newTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/api/artwork/album/nope/blurhash", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rw.Body.Bytes(), &body))
	assert.Nil(t, body["blurhash"])
}
