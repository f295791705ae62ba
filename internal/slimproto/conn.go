package slimproto

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/srosecker/resonance-go/internal/player"
)

// conn is one Slimproto TCP connection. It implements player.Transport
// so a player.Client can send frames without knowing about sockets.
type conn struct {
	nc  net.Conn
	r   *bufio.Reader
	mu  sync.Mutex // serializes writes; STAT reads happen on a single goroutine so need no lock
}

func newConn(nc net.Conn) *conn {
	return &conn{nc: nc, r: bufio.NewReader(nc)}
}

func (c *conn) SendStrm(cmd player.StrmCommand, params player.StartParams) error {
	return c.writeFrame("strm", buildStrm(cmd, params))
}

func (c *conn) SendAudioGain(gain float64) error {
	return c.writeFrame("audg", buildAudg(gain))
}

func (c *conn) SendAudioEnable(enabled bool) error {
	return c.writeFrame("aude", buildAude(enabled))
}

func (c *conn) Close() error {
	return c.nc.Close()
}

func (c *conn) writeFrame(op string, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return WriteFrame(c.nc, op, payload)
}

// readFrame blocks until the next frame arrives, or returns an error
// (including io.EOF on clean close) once the connection is dead.
func (c *conn) readFrame() (Frame, error) {
	return ReadFrame(c.r)
}

func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)
}

func logDisconnect(mac string, err error) {
	if isClosedErr(err) {
		slog.Info("slimproto: connection closed", "mac", mac)
		return
	}
	slog.Warn("slimproto: connection error", "mac", mac, "err", err)
}
