// Package mem provides an in-memory duplex responder.Transport over
// net.Pipe, for running a full responder round trip in one process without
// a real socket or tty.
package mem

import (
	"net"

	"github.com/iiodkit/responder"
)

// CmdHandler is the command callback a Transport delegates to for every
// non-RESPONSE frame the reader goroutine sees.
type CmdHandler func(hdr responder.CommandHeader, data *responder.CommandData, opaque any) error

// Transport implements responder.Transport over one side of a net.Pipe.
type Transport struct {
	conn   net.Conn
	onCmd  CmdHandler
	opaque any
}

// NewPipe returns two connected Transports, the loopback analogue of a
// TCP client/server pair: writes to one side are readable on the other.
func NewPipe(onCmdA, onCmdB CmdHandler) (*Transport, *Transport) {
	a, b := net.Pipe()
	return New(a, onCmdA, nil), New(b, onCmdB, nil)
}

// New wraps conn (typically one side of net.Pipe, but any net.Conn works).
func New(conn net.Conn, onCmd CmdHandler, opaque any) *Transport {
	return &Transport{conn: conn, onCmd: onCmd, opaque: opaque}
}

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

// Close closes the underlying net.Conn, unblocking any pending Read so a
// Responder's reader goroutine can notice shutdown and exit.
func (t *Transport) Close() error { return t.conn.Close() }
