// Package models defines the data structures shared across Resonance's
// player control plane: player identity/status, tracks, playlists, and
// stream slots. JSON field names follow LMS wire conventions where a
// shape is exposed over JSON-RPC or Cometd.
package models

import "time"

// DeviceType identifies the physical or software player model, derived
// once from the Slimproto HELO frame and immutable for the session.
type DeviceType int

const (
	DeviceUnknown DeviceType = iota
	DeviceSLIMP3
	DeviceSqueezebox
	DeviceSqueezebox2
	DeviceBoom
	DeviceRadio
	DeviceTouch
	DeviceController
	DeviceSqueezelite
)

func (d DeviceType) String() string {
	switch d {
	case DeviceSLIMP3:
		return "slimp3"
	case DeviceSqueezebox:
		return "squeezebox"
	case DeviceSqueezebox2:
		return "squeezebox2"
	case DeviceBoom:
		return "boom"
	case DeviceRadio:
		return "radio"
	case DeviceTouch:
		return "touch"
	case DeviceController:
		return "controller"
	case DeviceSqueezelite:
		return "squeezelite"
	default:
		return "unknown"
	}
}

// CapabilityTier buckets devices by streaming capability so TranscodePolicy
// and the device-capability table can reason about them without a big
// per-model switch statement everywhere.
type CapabilityTier int

const (
	TierUnknown CapabilityTier = iota
	TierLegacy
	TierModern
	TierFuture
)

func (t CapabilityTier) String() string {
	switch t {
	case TierLegacy:
		return "legacy"
	case TierModern:
		return "modern"
	case TierFuture:
		return "future"
	default:
		return "unknown"
	}
}

// deviceIDToType maps the Slimproto HELO device-id byte to a DeviceType.
// Values follow the historical Slim/Networking/Slimproto.pm assignment;
// several historical ids (softsqueeze, transporter, receiver, ...) behave
// like one of our enum values for control-plane purposes and are folded
// into it rather than growing the enum.
var deviceIDToType = map[byte]DeviceType{
	1:   DeviceSLIMP3,
	2:   DeviceSqueezebox,
	3:   DeviceSqueezebox2, // softsqueeze
	4:   DeviceSqueezebox2,
	5:   DeviceSqueezebox2, // transporter
	6:   DeviceSqueezebox2, // softsqueeze3
	7:   DeviceSqueezebox2, // receiver
	8:   DeviceSqueezelite, // squeezeslave
	9:   DeviceController,
	10:  DeviceBoom,
	11:  DeviceBoom, // softboom
	12:  DeviceTouch, // squeezeplay
	100: DeviceRadio,
}

// DeviceTypeFromID resolves a HELO device-id byte to a DeviceType.
func DeviceTypeFromID(id byte) DeviceType {
	if dt, ok := deviceIDToType[id]; ok {
		return dt
	}
	return DeviceUnknown
}

// CapabilityTierFor classifies a DeviceType into a coarse capability tier.
func CapabilityTierFor(d DeviceType) CapabilityTier {
	switch d {
	case DeviceSLIMP3, DeviceSqueezebox:
		return TierLegacy
	case DeviceSqueezebox2, DeviceBoom, DeviceRadio, DeviceController:
		return TierModern
	case DeviceTouch, DeviceSqueezelite:
		return TierFuture
	default:
		return TierUnknown
	}
}

// PlayerIdentity is the canonical MAC address, primary key everywhere in
// the control plane. Format "aa:bb:cc:dd:ee:ff", lowercase.
type PlayerIdentity string

// PlayerInfo is derived once from HELO and immutable for the connection's
// lifetime.
type PlayerInfo struct {
	MAC             PlayerIdentity `json:"mac"`
	UUID            string         `json:"uuid,omitempty"`
	DeviceID        byte            `json:"-"`
	DeviceType      DeviceType      `json:"-"`
	DeviceTypeName  string          `json:"device_type"`
	FirmwareRev     byte            `json:"firmware_rev"`
	CapabilityTier  CapabilityTier  `json:"-"`
	CapabilityName  string          `json:"capability_tier"`
}

// PlaybackState enumerates the per-player state machine positions from
// spec.md §4.2.
type PlaybackState int

const (
	StateDisconnected PlaybackState = iota
	StateStopped
	StateBuffering
	StatePlaying
	StatePaused
)

func (s PlaybackState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "disconnected"
	}
}

// PlayerStatus is mutated only by the owning PlayerClient in response to
// STAT frames, transport commands, or explicit setters.
type PlayerStatus struct {
	State            PlaybackState `json:"-"`
	StateName        string        `json:"state"`
	Volume           int           `json:"volume"`
	Muted            bool          `json:"muted"`
	ElapsedMS        int64         `json:"elapsed_ms"`
	DurationMS       int64         `json:"duration_ms"`
	StreamGeneration uint64        `json:"stream_generation"`
	CurrentTrackRef  string        `json:"current_track_ref,omitempty"`
	SignalStrength   *int          `json:"signalstrength,omitempty"`
	LastSeenAt       time.Time     `json:"-"`
}

// Snapshot returns a value copy safe to hand to another goroutine (e.g.
// an event publish) without aliasing the owner's mutable pointer fields.
func (s PlayerStatus) Snapshot() PlayerStatus {
	cp := s
	cp.StateName = s.State.String()
	if s.SignalStrength != nil {
		v := *s.SignalStrength
		cp.SignalStrength = &v
	}
	return cp
}
