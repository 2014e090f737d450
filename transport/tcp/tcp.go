// Package tcp wraps a net.Conn as a responder.Transport, the primary
// example transport named for the iiod responder protocol.
package tcp

import (
	"net"

	"github.com/iiodkit/responder"
)

// CmdHandler is the command callback a Transport delegates to for every
// non-RESPONSE frame the reader goroutine sees.
type CmdHandler func(hdr responder.CommandHeader, data *responder.CommandData, opaque any) error

// Transport implements responder.Transport over a TCP (or any stream-socket)
// net.Conn. Reads and writes are plain io.Reader/io.Writer calls over the
// connection's scatter/gather-free API, so multi-buffer descriptor lists
// are served one buffer at a time — net.Conn has no readv/writev, so this
// is the natural mapping rather than a missed optimization.
type Transport struct {
	conn    net.Conn
	onCmd   CmdHandler
	opaque  any
}

// New wraps conn. onCmd handles every inbound non-RESPONSE command frame;
// opaque is passed through to onCmd unchanged, for callers that want to
// stash per-connection state without a closure.
func New(conn net.Conn, onCmd CmdHandler, opaque any) *Transport {
	return &Transport{conn: conn, onCmd: onCmd, opaque: opaque}
}

// Conn returns the underlying net.Conn, e.g. so a caller can Close it to
// unblock a Responder's reader goroutine during shutdown.
func (t *Transport) Conn() net.Conn { return t.conn }

func (t *Transport) Read(bufs [][]byte) (int, error) {
	var total int
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := t.conn.Read(b)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}

func (t *Transport) Write(bufs [][]byte) (int, error) {
	var total int
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := t.conn.Write(b)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(b) {
			break
		}
	}
	return total, nil
}

// Discard reads and throws away up to n bytes; net.Conn has no native
// discard, so this is a bounded read into a scratch buffer.
func (t *Transport) Discard(n int) (int, error) {
	scratch := make([]byte, min(n, 4096))
	return t.conn.Read(scratch)
}

func (t *Transport) Cmd(hdr responder.CommandHeader, data *responder.CommandData, opaque any) error {
	if t.onCmd == nil {
		return nil
	}
	if opaque == nil {
		opaque = t.opaque
	}
	return t.onCmd(hdr, data, opaque)
}
