package slimproto

import (
	"encoding/binary"
	"fmt"
)

// StatInfo is the parsed payload of an inbound STAT frame.
type StatInfo struct {
	EventCode      string // STMc, STMe, STMh, STMs, STMt, STMp, STMr, STMu, STMd, STMf
	ElapsedMS      int64
	ElapsedJiffies uint32
	OutputBufFill  uint32
	SignalStrength *int
}

// ParseStat decodes a STAT payload. The wire layout follows the classic
// Slimproto struct_STATsend: a 4-byte event code, then fixed counters.
// Only the fields the control plane actually consumes are extracted.
func ParseStat(payload []byte) (StatInfo, error) {
	if len(payload) < 4 {
		return StatInfo{}, fmt.Errorf("slimproto: STAT payload too short: %d bytes", len(payload))
	}
	info := StatInfo{EventCode: string(payload[0:4])}

	// Offsets chosen to match the historical STAT struct: num crlf (1),
	// mas initialized (1), mas mode (1), buffer size (4), buffer fullness
	// (4), bytes received (8), signal strength (2), jiffies (4), output
	// buffer size (4), output buffer fullness (4), elapsed seconds (4),
	// voltage (2), elapsed milliseconds (4) ..., all after the 4-byte
	// event code.
	const sigOffset = 4 + 1 + 1 + 1 + 4 + 4 + 8
	const jiffiesOffset = sigOffset + 2
	const outFillOffset = jiffiesOffset + 4 + 4
	const elapsedMSOffset = outFillOffset + 4 + 4 + 2

	if len(payload) >= sigOffset+2 {
		sig := int(binary.BigEndian.Uint16(payload[sigOffset : sigOffset+2]))
		info.SignalStrength = &sig
	}
	if len(payload) >= jiffiesOffset+4 {
		info.ElapsedJiffies = binary.BigEndian.Uint32(payload[jiffiesOffset : jiffiesOffset+4])
	}
	if len(payload) >= outFillOffset+4 {
		info.OutputBufFill = binary.BigEndian.Uint32(payload[outFillOffset : outFillOffset+4])
	}
	if len(payload) >= elapsedMSOffset+4 {
		info.ElapsedMS = int64(binary.BigEndian.Uint32(payload[elapsedMSOffset : elapsedMSOffset+4]))
	}
	return info, nil
}
