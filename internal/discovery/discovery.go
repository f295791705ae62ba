// Package discovery implements the UDP broadcast responder (spec.md
// §4.1) that lets Squeezebox hardware and Squeezelite find this server
// on the LAN, grounded on the reference implementation's
// protocol/discovery.py.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"golang.org/x/time/rate"
)

// Port is the IANA-assigned UDP port shared with the Slimproto TCP
// server.
const Port = 3483

const maxHostnameLen = 16
const maxResponseLen = 1450

// Responder answers discovery datagrams with this server's identity.
type Responder struct {
	ServerName string
	HTTPPort   int
	ServerUUID string
	Version    string // must compare as < 8.0.0 for firmware <= 7.7.3, see New below

	limiter *rate.Limiter
}

// discoveryRPS bounds how many datagrams the responder answers per
// second in aggregate. Real discovery traffic is bursty at boot
// (players retry every few seconds until they get a reply) but never
// sustained, so a generous budget only bites a broadcast storm.
const discoveryRPS = 50
const discoveryBurst = 100

// New returns a Responder ready to bind.
func New(serverName string, httpPort int, serverUUID string) *Responder {
	return &Responder{
		ServerName: serverName,
		HTTPPort:   httpPort,
		ServerUUID: serverUUID,
		Version:    "7.999.999",
		limiter:    rate.NewLimiter(discoveryRPS, discoveryBurst),
	}
}

// ListenAndServe binds UDP :3483 and answers discovery datagrams until
// ctx is cancelled. A bind failure is returned to the caller, who is
// expected to log it and continue — Slimproto can still accept direct
// TCP connections without UDP discovery.
func (r *Responder) ListenAndServe(ctx context.Context) error {
	lc := net.ListenConfig{}
	pc, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", Port))
	if err != nil {
		return fmt.Errorf("discovery: listen :%d: %w", Port, err)
	}
	defer pc.Close()

	slog.Info("discovery: listening", "addr", pc.LocalAddr())

	go func() {
		<-ctx.Done()
		_ = pc.Close()
	}()

	buf := make([]byte, 2048)
	for {
		n, addr, err := pc.ReadFrom(buf)
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Warn("discovery: read error", "err", err)
				continue
			}
		}
		packet := append([]byte(nil), buf[:n]...)
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		go r.handlePacket(pc, packet, udpAddr)
	}
}

func (r *Responder) handlePacket(pc net.PacketConn, data []byte, addr *net.UDPAddr) {
	if len(data) == 0 {
		return
	}
	if !r.limiter.Allow() {
		slog.Debug("discovery: dropping packet, rate limit exceeded", "from", addr)
		return
	}
	switch data[0] {
	case 'd':
		r.handleLegacyDiscovery(pc, data, addr)
	case 'e':
		r.handleTLVDiscovery(pc, data, addr)
	case 'h':
		if len(data) < 3 || (data[1] != 0 || data[2] != 0) {
			r.handleHello(pc, addr)
		}
	default:
		slog.Debug("discovery: ignoring unknown packet", "from", addr, "first_byte", data[0])
	}
}

func (r *Responder) handleLegacyDiscovery(pc net.PacketConn, data []byte, addr *net.UDPAddr) {
	hostname := paddedHostname(r.ServerName)
	resp := append([]byte{'D'}, hostname...)
	r.send(pc, resp, addr)
}

func (r *Responder) handleHello(pc net.PacketConn, addr *net.UDPAddr) {
	resp := append([]byte{'h'}, make([]byte, 17)...)
	r.send(pc, resp, addr)
}

func (r *Responder) handleTLVDiscovery(pc net.PacketConn, data []byte, addr *net.UDPAddr) {
	localIP := localIPFor(addr)
	requested := parseTLVs(data[1:])

	resp := []byte{'E'}
	for tag, val := range requested {
		value := r.tlvValue(tag, val, localIP)
		if value == nil {
			continue
		}
		if len(value) > 255 {
			slog.Warn("discovery: TLV response too long, truncating", "tag", tag)
			value = value[:255]
		}
		resp = append(resp, tag...)
		resp = append(resp, byte(len(value)))
		resp = append(resp, value...)
	}

	if len(resp) > maxResponseLen {
		slog.Warn("discovery: TLV response too long, dropping", "len", len(resp))
		return
	}
	r.send(pc, resp, addr)
}

func (r *Responder) tlvValue(tag string, requestValue []byte, localIP string) []byte {
	switch tag {
	case "NAME":
		return []byte(r.ServerName)
	case "IPAD":
		if localIP == "" {
			return nil
		}
		return []byte(localIP)
	case "JSON":
		return []byte(fmt.Sprintf("%d", r.HTTPPort))
	case "VERS":
		return []byte(r.Version)
	case "UUID":
		return []byte(r.ServerUUID)
	case "JVID":
		if len(requestValue) > 0 {
			slog.Info("discovery: Jive device", "mac", formatMACBytes(requestValue))
		}
		return nil
	default:
		slog.Debug("discovery: unknown TLV tag", "tag", tag)
		return nil
	}
}

func (r *Responder) send(pc net.PacketConn, data []byte, addr *net.UDPAddr) {
	if _, err := pc.WriteTo(data, addr); err != nil {
		slog.Debug("discovery: send failed", "addr", addr, "err", err)
	}
}

// parseTLVs parses tag(4)/len(1)/value(len) entries, tolerating a
// truncated trailing entry by recording a nil value (still noting the
// tag was requested).
func parseTLVs(data []byte) map[string][]byte {
	out := make(map[string][]byte)
	offset := 0
	for offset+5 <= len(data) {
		tag := string(data[offset : offset+4])
		length := int(data[offset+4])
		var value []byte
		if length > 0 && offset+5+length <= len(data) {
			value = data[offset+5 : offset+5+length]
		}
		out[tag] = value
		offset += 5 + length
	}
	return out
}

// localIPFor determines which local address can reach addr by creating
// a throwaway UDP socket and connecting it (no bytes are ever sent) —
// the OS routing table picks the outbound interface/address for us.
func localIPFor(addr *net.UDPAddr) string {
	conn, err := net.Dial("udp4", fmt.Sprintf("%s:80", addr.IP.String()))
	if err != nil {
		return ""
	}
	defer conn.Close()
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || local.IP.IsUnspecified() {
		return ""
	}
	return local.IP.String()
}

// paddedHostname encodes name as ISO-8859-1 (approximated here as raw
// Latin-1 byte truncation, since Go strings are already UTF-8 and ASCII
// server names round-trip identically), truncates to 16 characters, and
// right-pads with NUL to exactly 17 bytes — the legacy ip3k firmware
// font requires this exact layout.
func paddedHostname(name string) []byte {
	b := []byte(name)
	if len(b) > maxHostnameLen {
		b = b[:maxHostnameLen]
	}
	out := make([]byte, 17)
	copy(out, b)
	return out
}

func formatMACBytes(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("%02x", v)
	}
	return strings.Join(parts, ":")
}
