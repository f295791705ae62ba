// Package slimproto implements the Slimproto TCP server from spec.md
// §4.2: frame codec, per-connection HELO/STAT handling, and the
// player.Transport side that sends strm/audg/aude frames.
package slimproto

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// maxFrameLen bounds inbound frame payloads against a malformed length
// field turning into an unbounded allocation.
const maxFrameLen = 1 << 20

// Frame is one decoded inbound frame: a 4-byte ASCII operation name plus
// its payload.
type Frame struct {
	Op      string
	Payload []byte
}

// ReadFrame reads one frame from r. HELO is the one operation whose
// length field is 4 bytes instead of 2 — a longstanding Slimproto quirk
// that every implementation has to special-case.
func ReadFrame(r *bufio.Reader) (Frame, error) {
	var opBuf [4]byte
	if _, err := io.ReadFull(r, opBuf[:]); err != nil {
		return Frame{}, err
	}
	op := string(opBuf[:])

	var length uint32
	if op == "HELO" {
		var lenBuf [4]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Frame{}, err
		}
		length = binary.BigEndian.Uint32(lenBuf[:])
	} else {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return Frame{}, err
		}
		length = uint32(binary.BigEndian.Uint16(lenBuf[:]))
	}

	if length > maxFrameLen {
		return Frame{}, fmt.Errorf("slimproto: frame %q length %d exceeds limit", op, length)
	}

	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, err
		}
	}
	return Frame{Op: op, Payload: payload}, nil
}

// WriteFrame writes op + big-endian 2-byte length + payload. Every
// outbound op (strm, audg, aude, vers, ...) uses the 2-byte form; only
// inbound HELO is exceptional.
func WriteFrame(w io.Writer, op string, payload []byte) error {
	if len(op) != 4 {
		return fmt.Errorf("slimproto: op %q must be exactly 4 bytes", op)
	}
	if len(payload) > 0xFFFF {
		return fmt.Errorf("slimproto: outbound payload too large: %d bytes", len(payload))
	}
	buf := make([]byte, 0, 6+len(payload))
	buf = append(buf, op...)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	_, err := w.Write(buf)
	return err
}
