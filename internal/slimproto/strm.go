package slimproto

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/srosecker/resonance-go/internal/player"
)

// formatByte maps a normalized extension to the single-byte format code
// `strm` expects.
var formatByte = map[string]byte{
	"mp3":  'm',
	"flac": 'f',
	"flc":  'f',
	"wav":  'p',
	"aiff": 'p',
	"aif":  'p',
	"ogg":  'o',
	"aac":  'a',
	"m4a":  'a',
}

func formatCode(format string) byte {
	if b, ok := formatByte[format]; ok {
		return b
	}
	return '?'
}

// buildStrm constructs a `strm` payload for cmd. For StrmStart it embeds
// an HTTP GET request for the device to issue back to this server, plus
// a format hint and server timestamp; all other subcommands send only
// the fixed header with their command byte set.
func buildStrm(cmd player.StrmCommand, params player.StartParams) []byte {
	var buf bytes.Buffer

	buf.WriteByte(byte(cmd))
	buf.WriteByte('0') // autostart: 0 = server decides when to start (own transition logic)
	buf.WriteByte(formatCode(params.Format))
	buf.WriteByte(0) // pcm sample size: n/a for compressed formats
	buf.WriteByte(0) // pcm sample rate
	buf.WriteByte(0) // pcm channels
	buf.WriteByte(0) // pcm endianness
	buf.WriteByte(0) // transition period
	buf.WriteByte(0) // transition type
	buf.WriteByte(0) // flags
	buf.WriteByte(0) // output threshold
	buf.WriteByte(0) // spdif enable
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], uint32(time.Now().Unix()))
	buf.Write(ts[:])
	buf.WriteByte(0) // reserved

	if cmd == player.StrmStart {
		req := "GET " + params.HTTPPath + " HTTP/1.0\r\nHost: " + params.HTTPHost + "\r\n\r\n"
		buf.WriteString(req)
	}

	return buf.Bytes()
}

// buildAudg constructs an `audg` (audio gain) payload. gain is a linear
// 0.0-1.0 value applied identically to both channels.
func buildAudg(gain float64) []byte {
	var buf bytes.Buffer
	fixed := uint32(gain * 65536)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], 0) // old gain L, unused
	buf.Write(b[:])
	binary.BigEndian.PutUint32(b[:], 0) // old gain R, unused
	buf.Write(b[:])
	buf.WriteByte(0) // adjust flag
	buf.WriteByte(0) // preamp
	binary.BigEndian.PutUint32(b[:], fixed)
	buf.Write(b[:])
	buf.Write(b[:]) // same gain on both channels
	return buf.Bytes()
}

// buildAude constructs an `aude` (audio enable) payload: spdif enable,
// dac enable.
func buildAude(enabled bool) []byte {
	var v byte
	if enabled {
		v = 1
	}
	return []byte{v, v}
}
