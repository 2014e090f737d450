// Package serial wraps a UART file descriptor as a responder.Transport,
// the UART transport named alongside TCP and USB bulk. Raw mode and baud
// rate are configured with termios ioctls via golang.org/x/sys/unix,
// following the teacher's own style of calling the kernel directly
// (unix.SchedSetaffinity, raw syscall.Syscall6 mmaps in
// internal/queue/runner.go) rather than reaching for a higher-level serial
// library.
package serial

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/iiodkit/responder"
)

// CmdHandler is the command callback a Transport delegates to for every
// non-RESPONSE frame the reader goroutine sees.
type CmdHandler func(hdr responder.CommandHeader, data *responder.CommandData, opaque any) error

// Config selects the UART line settings Open applies to the tty.
type Config struct {
	Ispeed, Ospeed uint32 // zero: leave the driver's current speed alone
	RawMode        bool   // apply cfmakeraw-equivalent flags; false (the zero value) leaves them unchanged
}

// Transport implements responder.Transport over a tty device file.
type Transport struct {
	f      *os.File
	onCmd  CmdHandler
	opaque any
}

// Open opens path (e.g. "/dev/ttyUSB0"), applies the settings from cfg
// (raw mode only when cfg.RawMode is set), and wraps it as a Transport.
func Open(path string, cfg Config, onCmd CmdHandler) (*Transport, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_NOCTTY, 0)
	if err != nil {
		return nil, err
	}

	if err := configureTermios(int(f.Fd()), cfg); err != nil {
		f.Close()
		return nil, err
	}

	return &Transport{f: f, onCmd: onCmd}, nil
}

// configureTermios puts fd into raw mode and applies the requested speed,
// mirroring what a C UART backend would do with tcgetattr/cfmakeraw/
// tcsetattr, via the equivalent Linux ioctls.
func configureTermios(fd int, cfg Config) error {
	term, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	if cfg.RawMode {
		term.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
			unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
		term.Oflag &^= unix.OPOST
		term.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
		term.Cflag &^= unix.CSIZE | unix.PARENB
		term.Cflag |= unix.CS8
		term.Cc[unix.VMIN] = 1
		term.Cc[unix.VTIME] = 0
	}

	if cfg.Ispeed != 0 {
		term.Ispeed = cfg.Ispeed
		term.Ospeed = cfg.Ospeed
	}

	return unix.IoctlSetTermios(fd, unix.TCSETS, term)
}

// New wraps an already-opened, already-configured tty file descriptor.
func New(f *os.File, onCmd CmdHandler, opaque any) *Transport {
	return &Transport{f: f, onCmd: onCmd, opaque: opaque}
}

// File returns the underlying tty file, e.g. so a caller can Close it to
// unblock a Responder's reader goroutine during shutdown.
func (t *Transport) File() *os.File { return t.f }

func (t *Transport) Read(bufs [][]byte) (int, error) {
	var total int
	for _, b := range bufs {
		if len(b) == 0 {
			continue
		}
		n, err := t.f.Read(b)
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
		n, err := t.f.Write(b)
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
	return t.f.Read(scratch)
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
