package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/config"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/transcode"
)

func writeTestAudioFile(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	path := filepath.Join(t.TempDir(), "track.mp3")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newStreamTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	h := newTestHandlers(t)
	h.Policy = transcode.New(&config.Tables{})
	return h
}

func TestHandleStream_MissingPlayerParamReturns400(t *testing.T) {
	h := newStreamTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stream.mp3", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusBadRequest, rw.Code)
}

func TestHandleStream_NoFileResolvedReturns404(t *testing.T) {
	h := newStreamTestHandlers(t)
	r := NewRouter(h)

	req := httptest.NewRequest(http.MethodGet, "/stream.mp3?player=aa:bb:cc:dd:ee:ff", nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusNotFound, rw.Code)
}

func TestHandleStream_RangeRequestReturns206(t *testing.T) {
	h := newStreamTestHandlers(t)
	r := NewRouter(h)

	path := writeTestAudioFile(t, 10_000_000)
	mac := models.PlayerIdentity("00:11:22:33:44:55")
	h.Streaming.QueueFile(mac, path)

	req := httptest.NewRequest(http.MethodGet, "/stream.mp3?player="+string(mac), nil)
	req.Header.Set("Range", "bytes=690000-9999999")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	require.Equal(t, http.StatusPartialContent, rw.Code)
	assert.Equal(t, "bytes 690000-9999999/10000000", rw.Header().Get("Content-Range"))
	assert.Equal(t, "9310000", rw.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", rw.Header().Get("Accept-Ranges"))
	body := rw.Body.Bytes()
	require.Len(t, body, 9310000)
	assert.Equal(t, byte(690000%256), body[0])
}

func TestHandleStream_ByteOffsetOverridesRangeAndIsCleared(t *testing.T) {
	h := newStreamTestHandlers(t)
	r := NewRouter(h)

	path := writeTestAudioFile(t, 1000)
	mac := models.PlayerIdentity("00:11:22:33:44:55")
	h.Streaming.QueueFileWithByteOffset(mac, path, 500)

	req := httptest.NewRequest(http.MethodGet, "/stream.mp3?player="+string(mac), nil)
	req.Header.Set("Range", "bytes=0-99")
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	require.Equal(t, http.StatusPartialContent, rw.Code)
	assert.Equal(t, "bytes 500-999/1000", rw.Header().Get("Content-Range"))
	assert.False(t, h.Streaming.Peek(mac).HasByteOffset, "byte offset must be cleared after the first chunk")
}

func TestHandleStream_NoRangeReturns200WithFullBody(t *testing.T) {
	h := newStreamTestHandlers(t)
	r := NewRouter(h)

	path := writeTestAudioFile(t, 1000)
	mac := models.PlayerIdentity("00:11:22:33:44:55")
	h.Streaming.QueueFile(mac, path)

	req := httptest.NewRequest(http.MethodGet, "/stream.mp3?player="+string(mac), nil)
	rw := httptest.NewRecorder()
	r.ServeHTTP(rw, req)

	assert.Equal(t, http.StatusOK, rw.Code)
	assert.Equal(t, "1000", rw.Header().Get("Content-Length"))
	assert.Len(t, rw.Body.Bytes(), 1000)
}
