package slimproto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srosecker/resonance-go/internal/models"
)

func heloPayload(deviceID, rev byte, mac [6]byte, uuid []byte, caps string) []byte {
	p := []byte{deviceID, rev}
	p = append(p, mac[:]...)
	p = append(p, 0, 0) // wlan channel list
	p = append(p, make([]byte, 8)...) // bytes received
	p = append(p, 0, 0) // language
	if uuid != nil {
		p = append(p, uuid...)
	}
	p = append(p, []byte(caps)...)
	return p
}

func TestParseHelo_WithoutUUID(t *testing.T) {
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	payload := heloPayload(8, 1, mac, nil, "Model=squeezelite")

	info, err := ParseHelo(payload)
	require.NoError(t, err)
	assert.Equal(t, models.PlayerIdentity("00:11:22:33:44:55"), info.MAC)
	assert.Equal(t, models.DeviceSqueezelite, info.DeviceType)
	assert.Empty(t, info.UUID)
	assert.Equal(t, "Model=squeezelite", info.Capabilities)
}

func TestParseHelo_WithUUID(t *testing.T) {
	mac := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	uuid := make([]byte, 16)
	for i := range uuid {
		uuid[i] = byte(i)
	}
	payload := heloPayload(2, 3, mac, uuid, "")

	info, err := ParseHelo(payload)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceSqueezebox, info.DeviceType)
	assert.Len(t, info.UUID, 32, "UUID is hex-encoded, 16 bytes -> 32 chars")
}

func TestParseHelo_TooShortErrors(t *testing.T) {
	_, err := ParseHelo([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestParseHelo_UnknownDeviceIDYieldsUnknown(t *testing.T) {
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	payload := heloPayload(250, 0, mac, nil, "")
	info, err := ParseHelo(payload)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceUnknown, info.DeviceType)
}
