package responder

import (
	"time"

	"github.com/iiodkit/responder/internal/wire"
)

// rwAllRead drives wire.RWAll against t.Read, giving the responder package
// a thin, typed wrapper instead of repeating the closure at every call site.
func rwAllRead(t Transport, bufs [][]byte, byteCap int) (int, error) {
	return wire.RWAll(bufs, byteCap, true, func(b [][]byte) (int, error) {
		return t.Read(b)
	})
}

// runReader is the reader goroutine: the Go port of
// iiod_responder_reader_thrd. It owns the transport's read side exclusively
// for the Responder's lifetime. Every iteration reads one 8-byte header;
// a non-RESPONSE header is dispatched to Transport.Cmd, a RESPONSE header
// is routed to the waiting Handle (or discarded if orphaned).
func (r *Responder) runReader(started chan<- error) {
	defer close(r.readerDone)
	started <- nil

	log := r.logger

	for !r.stopped.Load() {
		var hdrBuf [wire.HeaderSize]byte
		if _, err := rwAllRead(r.transport, [][]byte{hdrBuf[:]}, wire.HeaderSize); err != nil {
			wrapped := wrapTransportError("Read", err)
			r.readerErr = wrapped
			r.metrics.ObserveTransportError()
			log.WithError(wrapped).Debug("reader: transport closed while reading header")
			break
		}

		clientID, opByte, dev, code := wire.DecodeHeader(hdrBuf[:])
		op := Opcode(opByte)
		hdr := CommandHeader{ClientID: clientID, Op: op, Dev: dev, Code: code}

		if !op.IsResponse() {
			if err := r.dispatchCommand(hdr); err != nil {
				log.WithFrame(clientID, op).WithError(err).Debug("reader: command handler failed")
				break
			}
			continue
		}

		if err := r.dispatchResponse(hdr); err != nil {
			log.WithFrame(clientID, op).WithError(err).Debug("reader: response routing failed")
			break
		}
	}

	// Make sure the writer goroutine, which may be blocked waiting for new
	// work, notices the stop promptly instead of waiting for its own next
	// wake-up — the reader dying is itself a reason for the writer to exit.
	r.requestStop()
}

// dispatchCommand hands a non-RESPONSE frame to the transport's command
// callback. Any payload the callback wants is pulled on demand through
// CommandData.Read; bytes the callback never reads are left for the next
// header read to trip over, exactly as in the C implementation (callers
// are expected to always consume a command's declared payload).
func (r *Responder) dispatchCommand(hdr CommandHeader) error {
	data := &CommandData{responder: r, code: hdr.Code}
	err := r.transport.Cmd(hdr, data, nil)
	r.metrics.ObserveFrameReceived(uint64(max0i32(hdr.Code)))
	return err
}

// dispatchResponse routes a RESPONSE frame to its waiting Handle by client
// ID, or discards the declared payload if no handle is waiting for it.
func (r *Responder) dispatchResponse(hdr CommandHeader) error {
	r.rlock.Lock()
	h, ok := r.waiters[hdr.ClientID]
	if ok {
		delete(r.waiters, hdr.ClientID)
	}
	r.rlock.Unlock()

	if !ok {
		r.metrics.ObserveOrphanResponse()
		if hdr.Code > 0 {
			return r.discard(int(hdr.Code))
		}
		return nil
	}

	var n int
	var readErr error
	if len(h.pendingRead.bufs) > 0 && hdr.Code > 0 {
		n, readErr = r.readPayload(h.pendingRead.bufs, int(hdr.Code))
		if readErr == nil && n < int(hdr.Code) {
			readErr = r.discard(int(hdr.Code) - n)
		}
	}
	if readErr != nil {
		readErr = wrapTransportError("GetResponse", readErr)
	}

	r.metrics.ObserveFrameReceived(uint64(max0i32(hdr.Code)))
	if !h.pendingRead.requested.IsZero() {
		r.metrics.ObserveResponseLatency(uint64(time.Since(h.pendingRead.requested).Nanoseconds()))
	}

	cleanup := h.pendingRead.cleanup
	h.pendingRead = pendingRead{}

	r.rlock.Lock()
	h.rResult = ioResult{code: hdr.Code, err: readErr}
	h.rReady = true
	h.rCond.Signal()
	r.rlock.Unlock()

	if cleanup != nil {
		cleanup(n, readErr)
	}

	return readErr
}

func max0i32(n int32) int32 {
	if n < 0 {
		return 0
	}
	return n
}
