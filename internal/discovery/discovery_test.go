package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newLoopbackPair(t *testing.T) (server, client *net.UDPConn) {
	t.Helper()
	serverAddr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	server, err = net.ListenUDP("udp4", serverAddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = server.Close() })

	clientAddr, err := net.ResolveUDPAddr("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	client, err = net.ListenUDP("udp4", clientAddr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

func TestResponder_HandleLegacyDiscovery(t *testing.T) {
	server, client := newLoopbackPair(t)
	r := New("myserver", 9000, "uuid-1234")

	_, err := client.WriteToUDP([]byte{'d'}, server.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)

	buf := make([]byte, 2048)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, addr, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	r.handlePacket(server, buf[:n], addr)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	respBuf := make([]byte, 2048)
	rn, _, err := client.ReadFromUDP(respBuf)
	require.NoError(t, err)
	require.Equal(t, byte('D'), respBuf[0])
	require.Equal(t, 18, rn, "legacy discovery reply is 'D' plus a 17-byte padded hostname")
}

func TestResponder_HandleTLVDiscovery(t *testing.T) {
	server, client := newLoopbackPair(t)
	r := New("myserver", 9000, "uuid-1234")

	req := []byte{'e'}
	for _, tag := range []string{"NAME", "JSON", "UUID"} {
		req = append(req, []byte(tag)...)
		req = append(req, 0)
	}
	serverAddr := server.LocalAddr().(*net.UDPAddr)
	_, err := client.WriteToUDP(req, serverAddr)
	require.NoError(t, err)

	buf := make([]byte, 2048)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, addr, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	r.handlePacket(server, buf[:n], addr)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	respBuf := make([]byte, 2048)
	rn, _, err := client.ReadFromUDP(respBuf)
	require.NoError(t, err)
	resp := respBuf[:rn]
	require.Equal(t, byte('E'), resp[0])

	tlvs := parseTLVs(resp[1:])
	require.Equal(t, "myserver", string(tlvs["NAME"]))
	require.Equal(t, "9000", string(tlvs["JSON"]))
	require.Equal(t, "uuid-1234", string(tlvs["UUID"]))
}

func TestResponder_RateLimitDropsExcessPackets(t *testing.T) {
	server, client := newLoopbackPair(t)
	r := New("myserver", 9000, "uuid-1234")
	r.limiter.SetBurst(1)

	serverAddr := server.LocalAddr().(*net.UDPAddr)
	_, err := client.WriteToUDP([]byte{'d'}, serverAddr)
	require.NoError(t, err)
	buf := make([]byte, 64)
	require.NoError(t, server.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, addr, err := server.ReadFromUDP(buf)
	require.NoError(t, err)

	r.handlePacket(server, buf[:n], addr)
	r.handlePacket(server, buf[:n], addr) // second call, same instant: must be dropped

	require.NoError(t, client.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	respBuf := make([]byte, 64)
	count := 0
	for {
		if _, _, err := client.ReadFromUDP(respBuf); err != nil {
			break
		}
		count++
	}
	require.Equal(t, 1, count, "a burst of 1 token must answer exactly once")
}
