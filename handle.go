package responder

import (
	"container/list"
	"sync"
	"time"
)

// ioResult is what a reader/writer goroutine hands back to a waiting
// caller goroutine (over wDone for sends, through rResult under rlock for
// receives): the peer-reported code, negative errno included, and any
// transport/shutdown error.
type ioResult struct {
	code int32
	err  error
}

// cleanupFunc is invoked once an async operation completes, mirroring the
// C API's iiod_async_cleanup_t callback.
type cleanupFunc func(n int, err error)

// pendingRead is the state a Handle parks in Responder.waiters while it
// has an outstanding receive registered.
type pendingRead struct {
	bufs      [][]byte
	cleanup   cleanupFunc
	requested time.Time
}

// pendingWrite is one entry in the writer FIFO (Responder.writers).
type pendingWrite struct {
	handle  *Handle
	hdr     CommandHeader
	bufs    [][]byte
	cleanup cleanupFunc
}

// Handle is a single logical client multiplexed over the responder's one
// transport: the Go analogue of struct iiod_reader. Callers obtain one via
// Responder.NewHandle (a fresh client ID) or Responder.HandleForCommand
// (the client ID embedded in an inbound non-RESPONSE command), use it to
// send commands/responses and receive responses, and Cancel it to drop
// whatever it still has pending. A Handle has no Close method.
//
// A Handle supports at most one outstanding receive and one outstanding
// send at a time; issuing a second concurrent one is a caller bug, exactly
// as in the C API it mirrors.
type Handle struct {
	responder *Responder
	clientID  uint16

	wDone chan ioResult

	// rCond, rReady and rResult replace a plain channel for the receive
	// side: rCond shares responder.rlock, so GetAndRequestResponse can
	// hold rlock across both "consume the result that just completed"
	// and "register the next receive" as one critical section — the Go
	// equivalent of the C original holding its reader mutex continuously
	// across wait_for_response(reader, false) and
	// iiod_reader_enqueue_response_request(..., lock=false).
	rCond   *sync.Cond
	rReady  bool
	rResult ioResult

	pendingRead pendingRead

	listElem *list.Element // this handle's node in responder.writers, if queued
}

// ClientID returns the handle's client ID, the value the peer must echo
// back in a RESPONSE frame's CommandHeader.ClientID.
func (h *Handle) ClientID() uint16 { return h.clientID }

// SendCommandAsync enqueues a command frame for the writer goroutine and
// returns immediately; cleanup, if non-nil, runs on the writer goroutine
// once the frame has been fully written (or failed).
func (h *Handle) SendCommandAsync(op Opcode, dev uint8, code int32, bufs [][]byte, cleanup cleanupFunc) error {
	return h.responder.enqueueWrite(h, CommandHeader{ClientID: h.clientID, Op: op, Dev: dev, Code: code}, bufs, cleanup)
}

// SendCommand enqueues a command frame and blocks until it has been sent.
func (h *Handle) SendCommand(op Opcode, dev uint8, code int32, bufs [][]byte) error {
	if err := h.SendCommandAsync(op, dev, code, bufs, nil); err != nil {
		return err
	}
	return h.WaitForCommandDone()
}

// SendResponseAsync enqueues a RESPONSE frame carrying code (a peer-visible
// result: negative is an errno, non-negative is the payload length in bufs).
func (h *Handle) SendResponseAsync(code int32, bufs [][]byte, cleanup cleanupFunc) error {
	return h.responder.enqueueWrite(h, CommandHeader{ClientID: h.clientID, Op: OpResponse, Code: code}, bufs, cleanup)
}

// SendResponse enqueues a RESPONSE frame and blocks until it has been sent.
func (h *Handle) SendResponse(code int32, bufs [][]byte) error {
	if err := h.SendResponseAsync(code, bufs, nil); err != nil {
		return err
	}
	return h.WaitForCommandDone()
}

// WaitForCommandDone blocks until the most recent SendCommandAsync or
// SendResponseAsync call on this handle has finished sending.
func (h *Handle) WaitForCommandDone() error {
	res := <-h.wDone
	return res.err
}

// GetResponseAsync registers this handle to receive the next RESPONSE
// frame addressed to its client ID, filling bufs (if any) with the payload.
func (h *Handle) GetResponseAsync(bufs [][]byte) {
	h.responder.registerWaiter(h, bufs, nil)
}

// WaitForResponse blocks until a previously requested response (via
// GetResponseAsync) has arrived, returning the peer-reported code.
func (h *Handle) WaitForResponse() (int32, error) {
	h.responder.rlock.Lock()
	defer h.responder.rlock.Unlock()

	for !h.rReady {
		h.rCond.Wait()
	}
	res := h.rResult
	h.rReady = false
	return res.code, res.err
}

// GetResponse is the synchronous form of GetResponseAsync+WaitForResponse.
func (h *Handle) GetResponse(bufs [][]byte) (int32, error) {
	h.GetResponseAsync(bufs)
	return h.WaitForResponse()
}

// GetAndRequestResponse atomically consumes the result of a previously
// queued response request and re-registers a new one with bufs, without a
// window where the handle is unregistered — the Go port of
// iiod_reader_get_and_request_response, used by clients that pipeline
// reads (e.g. a cyclic buffer stream) one request ahead of the data.
//
// The consume-then-reregister sequence holds responder.rlock for its
// entire duration, exactly as the C original holds its reader mutex across
// wait_for_response(reader, false) and
// iiod_reader_enqueue_response_request(..., lock=false): the handle is
// never briefly absent from responder.waiters, so a response for the next
// frame arriving on the reader goroutine in between can never be
// misrouted as an orphan.
func (h *Handle) GetAndRequestResponse(bufs [][]byte) (int32, error) {
	h.responder.rlock.Lock()
	defer h.responder.rlock.Unlock()

	for !h.rReady {
		h.rCond.Wait()
	}
	res := h.rResult
	h.rReady = false

	h.responder.registerWaiterLocked(h, bufs, nil)

	return res.code, res.err
}

// ExecCommand sends cmd with cmdBufs as payload, then waits for the
// matching response into bufs, registering the receive before the send so
// a fast peer can never deliver the response before this handle is ready
// for it.
func (h *Handle) ExecCommand(op Opcode, dev uint8, code int32, cmdBufs, bufs [][]byte) (int32, error) {
	h.GetResponseAsync(bufs)

	if err := h.SendCommand(op, dev, code, cmdBufs); err != nil {
		h.Cancel()
		return 0, err
	}

	return h.WaitForResponse()
}

// Cancel removes any pending receive and any queued-but-unsent write for
// this handle. It is a no-op for whichever side (or both) has nothing
// pending, matching the "cancel on an idle handle does nothing" contract.
func (h *Handle) Cancel() {
	h.responder.cancelWaiter(h)
	h.responder.cancelWriter(h)
}
