// Package transcode decides whether a given source format needs
// transcoding for a device, and if so builds the external pipeline that
// performs it (spec.md §4.5).
package transcode

import (
	"fmt"
	"strings"

	"github.com/srosecker/resonance-go/internal/config"
	"github.com/srosecker/resonance-go/internal/models"
)

// TranscodeTargetFormat is the wire format every transcode pipeline is
// assumed to end in.
const TranscodeTargetFormat = "mp3"

// alwaysTranscode and neverTranscode override the config table when in
// conflict (spec.md §4.5): MP4-family containers stream unreliably over
// HTTP on most Squeezebox firmwares, and "aac" files are frequently not
// ADTS-safe.
var alwaysTranscode = map[string]bool{
	"m4a": true, "m4b": true, "mp4": true, "m4p": true, "m4r": true, "alac": true, "aac": true,
}

var neverTranscode = map[string]bool{
	"mp3": true, "flac": true, "flc": true, "ogg": true, "wav": true, "aiff": true, "aif": true,
}

// ContentTypes maps a normalized extension to its HTTP Content-Type for
// the direct-stream path.
var ContentTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"flac": "audio/flac",
	"flc":  "audio/flac",
	"ogg":  "audio/ogg",
	"wav":  "audio/wav",
	"aiff": "audio/aiff",
	"aif":  "audio/aiff",
	"m4a":  "audio/mp4",
	"m4b":  "audio/mp4",
	"aac":  "audio/aac",
	"opus": "audio/opus",
}

// Policy decides transcoding need and resolves rules against a live,
// hot-reloadable config.Tables.
type Policy struct {
	tables *config.Tables
}

// New builds a Policy backed by tables.
func New(tables *config.Tables) *Policy {
	return &Policy{tables: tables}
}

// NormalizeExt lowercases ext and strips a leading dot.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NeedsTranscoding applies the hard-coded overrides first, then falls
// back to the device-capability table for formats neither list names.
func (p *Policy) NeedsTranscoding(ext string, deviceType models.DeviceType) bool {
	ext = NormalizeExt(ext)
	if alwaysTranscode[ext] {
		return true
	}
	if neverTranscode[ext] {
		return false
	}
	for _, d := range p.tables.Device().Devices {
		if !patternMatches(d.TypePattern, deviceType.String()) {
			continue
		}
		for _, f := range d.NeedsTranscodeFor {
			if NormalizeExt(f) == ext {
				return true
			}
		}
		return false
	}
	return false
}

// StrmFormatHint returns the format the player should be told to expect
// in the strm-s frame: TranscodeTargetFormat if this server will
// transcode, else the normalized source extension. Drift between this
// value and the bytes actually sent is the single most common and
// catastrophic class of bug in this subsystem.
func (p *Policy) StrmFormatHint(ext string, deviceType models.DeviceType) string {
	if p.NeedsTranscoding(ext, deviceType) {
		return TranscodeTargetFormat
	}
	return NormalizeExt(ext)
}

// FindRule returns the first matching rule for srcExt/deviceType/deviceID
// in file order, per spec.md §4.5's matching algorithm.
func (p *Policy) FindRule(srcExt string, deviceType models.DeviceType, deviceID byte) (config.TranscodeRule, bool) {
	srcExt = NormalizeExt(srcExt)
	idStr := fmt.Sprintf("%d", deviceID)
	for _, r := range p.tables.Transcode().Rules {
		if NormalizeExt(r.SrcFormat) != srcExt {
			continue
		}
		if !patternMatches(r.DeviceType, deviceType.String()) {
			continue
		}
		if !patternMatches(r.DeviceID, idStr) {
			continue
		}
		return r, true
	}
	return config.TranscodeRule{}, false
}

func patternMatches(pattern, value string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	return strings.EqualFold(pattern, value)
}
