package jsonrpc

import (
	"context"
	"fmt"
	"os"

	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/transcode"
)

// transcodeFormatSeeksByTime lists the formats for which a seek is
// expressed to the transcoder as a time offset ($START$/$END$) rather
// than a computed byte offset into the source file. TranscodePolicy
// always transcodes all of these; it also always transcodes m4p and m4r,
// which are not listed here.
var transcodeFormatSeeksByTime = map[string]bool{
	"m4a": true, "m4b": true, "mp4": true, "aac": true, "alac": true,
}

func (d *Dispatcher) handleTime(ctx context.Context, mac models.PlayerIdentity, p Params) (map[string]any, error) {
	c, err := d.requirePlayer(mac)
	if err != nil {
		return nil, err
	}
	status := c.Snapshot()

	arg, hasArg := p.PositionalString(0)
	if !hasArg {
		return map[string]any{"time": float64(status.ElapsedMS) / 1000.0}, nil
	}

	durationS := float64(status.DurationMS) / 1000.0
	target, ok := resolveTimeTarget(arg, float64(status.ElapsedMS)/1000.0, durationS)
	if !ok {
		return nil, fmt.Errorf("jsonrpc: invalid time argument %q", arg)
	}

	ran := d.Seek.Seek(ctx, string(mac), target, func(t float64) error {
		return d.executeSeek(c, mac, t, durationS)
	})
	return map[string]any{"seeking": ran}, nil
}

// resolveTimeTarget parses "S" / "+S" / "-S" and clamps to [0, duration-1].
func resolveTimeTarget(arg string, current, duration float64) (float64, bool) {
	if arg == "" {
		return 0, false
	}
	var target float64
	switch arg[0] {
	case '+':
		v, ok := parseSeconds(arg[1:])
		if !ok {
			return 0, false
		}
		target = current + v
	case '-':
		v, ok := parseSeconds(arg[1:])
		if !ok {
			return 0, false
		}
		target = current - v
	default:
		v, ok := parseSeconds(arg)
		if !ok {
			return 0, false
		}
		target = v
	}
	if target < 0 {
		target = 0
	}
	if duration > 0 && target > duration-1 {
		target = duration - 1
	}
	return target, true
}

func parseSeconds(s string) (float64, bool) {
	v, ok := toInt(s)
	if ok {
		return float64(v), true
	}
	return 0, false
}

// executeSeek is the SeekCoordinator executor for `time` commands: stop
// and flush the player, requeue the current file with either a
// time-based seek (transcoded formats) or a computed byte offset
// (direct-stream formats), then start_track again.
func (d *Dispatcher) executeSeek(c *player.Client, mac models.PlayerIdentity, target, durationS float64) error {
	path, ok := d.Streaming.ResolveFile(mac)
	if !ok {
		return fmt.Errorf("jsonrpc: no file queued for %s", mac)
	}

	d.Streaming.CancelStream(mac)
	if err := c.Stop(); err != nil {
		return err
	}
	if err := c.Flush(); err != nil {
		return err
	}

	ext := transcode.NormalizeExt(extOfPath(path))
	if transcodeFormatSeeksByTime[ext] {
		d.Streaming.QueueFileWithSeek(mac, path, target, 0, false)
	} else if offset, ok := byteOffsetForSeek(path, target, durationS); ok {
		d.Streaming.QueueFileWithByteOffset(mac, path, offset)
	} else {
		d.Streaming.QueueFile(mac, path)
	}

	return d.startTrack(c, mac, path)
}

// byteOffsetForSeek estimates a byte offset for a direct-stream seek as
// offset = audio_data_start + target/duration * (file_size -
// audio_data_start), per spec.md §4.8. This is a constant-bitrate
// approximation: true VBR MP3 sample-accurate seeking needs a Xing/VBRI
// seek index, which is out of scope here (see the VBR seek Open
// Question resolved in DESIGN.md) — the ratio estimate lands within a
// frame or two of the real position for the overwhelming majority of
// files players actually seek in. audio_data_start keeps that estimate
// out of the leading ID3v2 tag; the trailing 8 KiB is reserved so the
// offset never lands past the last decodable frame.
func byteOffsetForSeek(path string, target, durationS float64) (int64, bool) {
	if durationS <= 0 || target <= 0 {
		return 0, target <= 0
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, false
	}
	size := info.Size()

	audioDataStart := mp3AudioDataStart(f, size)

	ratio := target / durationS
	if ratio > 1 {
		ratio = 1
	}
	offset := audioDataStart + int64(ratio*float64(size-audioDataStart))

	maxOffset := size - 8192
	if maxOffset < audioDataStart {
		maxOffset = audioDataStart
	}
	if offset < audioDataStart {
		offset = audioDataStart
	}
	if offset > maxOffset {
		offset = maxOffset
	}
	return offset, true
}

// mp3AudioDataStart returns the byte offset where audio data begins,
// skipping a leading ID3v2 tag if present (spec.md §4.8). Returns 0 if
// there is no ID3v2 header or it cannot be read.
func mp3AudioDataStart(f *os.File, size int64) int64 {
	if size < 10 {
		return 0
	}
	header := make([]byte, 10)
	if _, err := f.ReadAt(header, 0); err != nil {
		return 0
	}
	if header[0] != 'I' || header[1] != 'D' || header[2] != '3' {
		return 0
	}
	tagSize := int64(header[6]&0x7f)<<21 | int64(header[7]&0x7f)<<14 | int64(header[8]&0x7f)<<7 | int64(header[9]&0x7f)
	start := 10 + tagSize
	if start > size {
		return 0
	}
	return start
}

func extOfPath(path string) string {
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
