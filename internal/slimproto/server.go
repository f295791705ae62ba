package slimproto

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/srosecker/resonance-go/internal/events"
	"github.com/srosecker/resonance-go/internal/models"
	"github.com/srosecker/resonance-go/internal/player"
	"github.com/srosecker/resonance-go/internal/registry"
	"github.com/srosecker/resonance-go/internal/streaming"
	"github.com/srosecker/resonance-go/internal/transcode"
)

// Server accepts Slimproto connections and drives the per-player state
// machine from spec.md §4.2. The port defaults to 3483, the LMS/SqueezeCenter
// standard, but is configurable via NewServer.
type Server struct {
	registry   *registry.Registry
	bus        *events.Bus
	streaming  *streaming.Coordinator
	policy     *transcode.Policy
	httpHost   string // host:port the device should connect back to for audio
	port       int
}

// NewServer wires a Slimproto Server against the shared control-plane
// collaborators. port is the TCP port to bind for client connections.
func NewServer(reg *registry.Registry, bus *events.Bus, coord *streaming.Coordinator, policy *transcode.Policy, httpHost string, port int) *Server {
	return &Server{registry: reg, bus: bus, streaming: coord, policy: policy, httpHost: httpHost, port: port}
}

// ListenAndServe binds the server's TCP port and accepts connections
// until ctx is cancelled or the listener errors.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("slimproto: listen %s: %w", addr, err)
	}
	slog.Info("slimproto: listening", "addr", addr)

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		nc, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("slimproto: accept: %w", err)
			}
		}
		go s.handleConn(ctx, nc)
	}
}

func (s *Server) handleConn(ctx context.Context, nc net.Conn) {
	c := newConn(nc)
	defer c.Close()

	first, err := c.readFrame()
	if err != nil {
		logDisconnect("unknown", err)
		return
	}
	if first.Op != "HELO" {
		slog.Warn("slimproto: expected HELO, got", "op", first.Op)
		return
	}
	helo, err := ParseHelo(first.Payload)
	if err != nil {
		slog.Warn("slimproto: malformed HELO", "err", err)
		return
	}

	info := models.PlayerInfo{
		MAC:            helo.MAC,
		UUID:           helo.UUID,
		DeviceID:       helo.DeviceID,
		DeviceType:     helo.DeviceType,
		DeviceTypeName: helo.DeviceType.String(),
		FirmwareRev:    helo.Revision,
		CapabilityTier: models.CapabilityTierFor(helo.DeviceType),
		CapabilityName: models.CapabilityTierFor(helo.DeviceType).String(),
	}

	client := player.New(info, c, s.bus)
	s.registry.Connect(client)
	defer func() {
		s.registry.Disconnect(info.MAC)
		s.streaming.Forget(info.MAC)
	}()

	// Initial handshake frames: enable audio output, unity gain, and ask
	// for a status frame so PlayerStatus has a baseline before anything
	// else happens.
	_ = client.SetMuted(false)
	_ = c.SendStrm(player.StrmStatus, player.StartParams{})

	slog.Info("slimproto: player connected", "mac", info.MAC, "device", info.DeviceTypeName)

	for {
		frame, err := c.readFrame()
		if err != nil {
			logDisconnect(string(info.MAC), err)
			client.Disconnect()
			return
		}

		switch frame.Op {
		case "STAT":
			stat, err := ParseStat(frame.Payload)
			if err != nil {
				slog.Warn("slimproto: malformed STAT", "mac", info.MAC, "err", err)
				continue
			}
			finished, gen := client.ApplyStat(stat.EventCode, stat.ElapsedMS, stat.SignalStrength)
			if finished {
				s.bus.Publish(events.ChannelPlayerTrackFinish, events.TrackFinishedPayload{
					PlayerMAC:        string(info.MAC),
					StreamGeneration: gen,
				})
			}
		case "RESP", "META", "BYE!":
			// Acknowledgement / metadata frames the control plane does not
			// currently act on; logged at debug to keep the connection quiet.
			slog.Debug("slimproto: frame", "mac", info.MAC, "op", frame.Op, "len", len(frame.Payload))
		default:
			slog.Debug("slimproto: unhandled frame", "mac", info.MAC, "op", frame.Op)
		}
	}
}

// StartTrack is the spec.md §4.2 start_track operation: bump the
// streaming slot's generation, compute the wire format, and tell the
// device to open an HTTP GET back to us for the bytes.
func (s *Server) StartTrack(c *player.Client, mac models.PlayerIdentity, path string) error {
	generation := s.streaming.QueueFile(mac, path)
	ext := extOf(path)
	format := s.policy.StrmFormatHint(ext, c.Info.DeviceType)

	q := url.Values{}
	q.Set("player", string(mac))
	httpPath := "/stream." + format + "?" + q.Encode()

	return c.StartTrack(path, format, s.httpHost, httpPath, generation)
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
