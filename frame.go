package responder

import "unsafe"

// CommandHeader is the 8-byte frame header exchanged on the wire ahead of
// every command or response. A negative Code on a response frame is a
// peer-reported errno; non-negative is the length, in bytes, of the
// payload that follows on the transport.
type CommandHeader struct {
	ClientID uint16
	Op       Opcode
	Dev      uint8
	Code     int32
}

// HeaderSize is the wire size of CommandHeader, enforced below.
const HeaderSize = 8

var _ [HeaderSize]byte = [unsafe.Sizeof(CommandHeader{})]byte{}

// MaxDescriptors is the hard cap on the number of buffer descriptors a
// single scatter/gather call may combine (header plus payload buffers).
const MaxDescriptors = 32
