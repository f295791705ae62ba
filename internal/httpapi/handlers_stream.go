package httpapi

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/streaming"
	"github.com/srosecker/resonance-go/internal/transcode"
)

// defaultTranscodeCommand is used when TranscodePolicy.FindRule has no
// configured rule for a format that still needs transcoding (the
// always-transcode overrides in particular): a plain ffmpeg pipeline to
// mp3, seekable via -ss/-to.
const defaultTranscodeCommand = "[ffmpeg] -hide_banner -loglevel error $START$ -i $FILE$ $END$ -f mp3 -"

// streamChunkSize is the direct- and transcode-path write granularity
// (spec.md §4.4): 64 KiB per chunk, with cancel_token checked every 4th
// chunk rather than on every single one.
const streamChunkSize = 64 * 1024

// handleStream serves /stream.<ext>?player=<mac>: the audio byte stream
// a Slimproto device's strm-s frame told it to fetch from us, either
// served directly from disk or piped through a transcode pipeline
// (spec.md §4.4).
func (h *Handlers) handleStream(w http.ResponseWriter, r *http.Request) {
	macParam := r.URL.Query().Get("player")
	if macParam == "" {
		http.Error(w, "missing player query parameter", http.StatusBadRequest)
		return
	}
	mac := models.PlayerIdentity(macParam)

	path, ok := h.Streaming.ResolveFile(mac)
	if !ok {
		http.Error(w, "no stream queued for this player", http.StatusNotFound)
		return
	}
	slot := h.Streaming.Peek(mac)

	ext := transcode.NormalizeExt(chi.URLParam(r, "ext"))
	if ext == "" {
		ext = transcode.NormalizeExt(extOf(path))
	}

	var deviceType models.DeviceType
	var deviceID byte
	if c, ok := h.Registry.Get(mac); ok {
		deviceType = c.Info.DeviceType
		deviceID = c.Info.DeviceID
	}

	ctx := h.Streaming.CancellationToken(mac)

	if h.Policy.NeedsTranscoding(transcode.NormalizeExt(extOf(path)), deviceType) {
		h.streamTranscoded(w, r, mac, path, deviceType, deviceID, slot, ctx.Done())
		return
	}
	h.streamDirect(w, r, mac, path, ext, slot, ctx.Done())
}

// streamDirect serves the source file as-is, honoring a stored byte
// offset (which overrides Range) or an HTTP Range request, per spec.md
// §4.4 item 2.
func (h *Handlers) streamDirect(w http.ResponseWriter, r *http.Request, mac models.PlayerIdentity, path, ext string, slot streaming.SlotView, cancel <-chan struct{}) {
	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "cannot open source file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "cannot stat source file", http.StatusInternalServerError)
		return
	}
	size := info.Size()

	start, end := int64(0), size-1
	partial := false
	usedByteOffset := false

	switch {
	case slot.HasByteOffset:
		start = slot.ByteOffset
		if start < 0 {
			start = 0
		}
		if start > size-1 {
			start = size - 1
		}
		partial = start > 0
		usedByteOffset = true
	case r.Header.Get("Range") != "":
		if s, e, ok := parseRange(r.Header.Get("Range"), size); ok {
			start, end = s, e
			partial = true
		}
	}

	if _, err := f.Seek(start, io.SeekStart); err != nil {
		slog.Warn("httpapi: seek failed, streaming from start", "path", path, "err", err)
		start, end, partial = 0, size-1, false
		_, _ = f.Seek(0, io.SeekStart)
	}

	length := end - start + 1
	if ct, ok := transcode.ContentTypes[ext]; ok {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	if partial {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	onFirstChunk := func() {
		if usedByteOffset {
			h.Streaming.ClearByteOffset(mac)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		copyChunked(w, io.LimitReader(f, length), cancel, onFirstChunk)
	}()
	select {
	case <-done:
	case <-cancel:
	}
}

func (h *Handlers) streamTranscoded(w http.ResponseWriter, r *http.Request, mac models.PlayerIdentity, path string, deviceType models.DeviceType, deviceID byte, slot streaming.SlotView, cancel <-chan struct{}) {
	srcExt := transcode.NormalizeExt(extOf(path))
	rule, found := h.Policy.FindRule(srcExt, deviceType, deviceID)
	template := defaultTranscodeCommand
	if found && !rule.IsPassthrough() {
		template = rule.Command
	} else if found && rule.IsPassthrough() {
		h.streamDirect(w, r, mac, path, srcExt, slot, cancel)
		return
	}

	hasEnd := slot.HasSeek && slot.SeekEndS > 0
	if template == defaultTranscodeCommand {
		// ffmpeg takes the seek window as input options -ss/-to, not the
		// -j/-e that BuildCommand substitutes for $START$/$END$.
		seek := ""
		if slot.HasSeek {
			seek = fmt.Sprintf("-ss %.3f", slot.SeekStartS)
		}
		if hasEnd {
			seek += fmt.Sprintf(" -to %.3f", slot.SeekEndS)
		}
		template = strings.NewReplacer("$START$", seek, "$END$", "").Replace(template)
	}
	stageLines := transcode.BuildCommand(template, path, slot.HasSeek, slot.SeekStartS, hasEnd, slot.SeekEndS)
	pipeline, err := transcode.Launch(stageLines, h.ToolsDir)
	if err != nil {
		slog.Error("httpapi: transcode pipeline failed to start", "path", path, "err", err)
		http.Error(w, "transcode failed", http.StatusInternalServerError)
		return
	}
	defer pipeline.Terminate()

	w.Header().Set("Content-Type", transcode.ContentTypes[transcode.TranscodeTargetFormat])
	w.Header().Set("Accept-Ranges", "none")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	onFirstChunk := func() {
		if slot.HasSeek {
			h.Streaming.ClearSeekPosition(mac)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		copyChunked(w, pipeline.Stdout, cancel, onFirstChunk)
	}()
	select {
	case <-done:
	case <-cancel:
	case <-r.Context().Done():
	}
}

// copyChunked streams src to w in streamChunkSize chunks, checking
// cancel every 4 chunks rather than on every single one (spec.md §4.4).
// onFirstChunk, if non-nil, runs right after the first chunk is
// written — the "apply the offset/seek clear exactly once" hook both
// stream paths need.
func copyChunked(w io.Writer, src io.Reader, cancel <-chan struct{}, onFirstChunk func()) {
	buf := make([]byte, streamChunkSize)
	flusher, _ := w.(http.Flusher)
	for chunk := 0; ; chunk++ {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
			if chunk == 0 && onFirstChunk != nil {
				onFirstChunk()
			}
		}
		if (chunk+1)%4 == 0 {
			select {
			case <-cancel:
				return
			default:
			}
		}
		if readErr != nil {
			return
		}
	}
}

// parseRange parses a single-range "bytes=start-end"/"bytes=start-"/
// "bytes=-suffixLen" request header against a known file size. Only the
// first range of a multi-range request is honored.
func parseRange(header string, size int64) (start, end int64, ok bool) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) || size <= 0 {
		return 0, 0, false
	}
	spec := strings.TrimPrefix(header, prefix)
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = spec[:i]
	}
	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return 0, 0, false
	}
	lo, hi := spec[:dash], spec[dash+1:]

	if lo == "" {
		n, err := strconv.ParseInt(hi, 10, 64)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true
	}

	s, err := strconv.ParseInt(lo, 10, 64)
	if err != nil || s < 0 || s >= size {
		return 0, 0, false
	}
	e := size - 1
	if hi != "" {
		parsed, err := strconv.ParseInt(hi, 10, 64)
		if err != nil || parsed < s {
			return 0, 0, false
		}
		e = parsed
		if e > size-1 {
			e = size - 1
		}
	}
	return s, e, true
}

func extOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '.' {
			return path[i+1:]
		}
		if path[i] == '/' {
			break
		}
	}
	return ""
}
