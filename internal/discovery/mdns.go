package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/grandcat/zeroconf"
)

// mdnsServiceType is the Bonjour/DNS-SD service type real LMS servers
// register so desktop clients (e.g. squeezeplay) can find them without
// a UDP broadcast round trip.
const mdnsServiceType = "_slimhttp._tcp"

// MDNS advertises this server over mDNS/DNS-SD alongside the UDP
// discovery responder. It is best-effort: a LAN without mDNS support
// (or a container network namespace that can't reach multicast) should
// not prevent the server from starting.
type MDNS struct {
	name    string
	httpPort int
	uuid    string
	server  *zeroconf.Server
}

// NewMDNS returns an MDNS advertiser for the given server identity.
func NewMDNS(serverName string, httpPort int, serverUUID string) *MDNS {
	return &MDNS{name: serverName, httpPort: httpPort, uuid: serverUUID}
}

// Start registers the mDNS service and blocks until ctx is cancelled.
func (m *MDNS) Start(ctx context.Context) error {
	txt := []string{fmt.Sprintf("uuid=%s", m.uuid), "version=7.999.999"}

	server, err := zeroconf.Register(m.name, mdnsServiceType, "local.", m.httpPort, txt, nil)
	if err != nil {
		return fmt.Errorf("discovery: mdns register: %w", err)
	}
	m.server = server
	slog.Info("discovery: mdns registered", "name", m.name, "service", mdnsServiceType, "port", m.httpPort)

	<-ctx.Done()
	server.Shutdown()
	slog.Info("discovery: mdns unregistered")
	return nil
}
