package slimproto

import (
	"encoding/hex"
	"fmt"

	"github.com/srosecker/resonance-go/internal/models"
)

// HeloInfo is the parsed payload of an inbound HELO frame.
type HeloInfo struct {
	DeviceID    byte
	DeviceType  models.DeviceType
	Revision    byte
	MAC         models.PlayerIdentity
	UUID        string // empty if the device didn't send one
	Capabilities string
}

// ParseHelo decodes a HELO payload: device id byte, revision byte, 6-byte
// MAC, 2-byte WLAN channel list, 8 bytes bytes-received, 2-byte language,
// an optional 16-byte UUID, then a capability string. Squeezebox
// firmwares vary in whether the UUID block is present; we only trust it
// when at least 16 trailing bytes remain and those 16 are not all
// printable ASCII (a capability string is plain text).
func ParseHelo(payload []byte) (HeloInfo, error) {
	const fixedLen = 1 + 1 + 6 + 2 + 8 + 2
	if len(payload) < fixedLen {
		return HeloInfo{}, fmt.Errorf("slimproto: HELO payload too short: %d bytes", len(payload))
	}

	devID := payload[0]
	rev := payload[1]
	macBytes := payload[2:8]
	mac := formatMAC(macBytes)

	rest := payload[fixedLen:]
	info := HeloInfo{
		DeviceID:   devID,
		DeviceType: models.DeviceTypeFromID(devID),
		Revision:   rev,
		MAC:        mac,
	}

	if len(rest) >= 16 {
		printable := true
		for _, b := range rest[:16] {
			if b < 0x20 || b > 0x7e {
				printable = false
				break
			}
		}
		if !printable {
			info.UUID = hex.EncodeToString(rest[:16])
			rest = rest[16:]
		}
	}
	info.Capabilities = string(rest)
	return info, nil
}

func formatMAC(b []byte) models.PlayerIdentity {
	return models.PlayerIdentity(fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", b[0], b[1], b[2], b[3], b[4], b[5]))
}
