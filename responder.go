// Package responder implements a bidirectional, multiplexed request/response
// protocol engine over one duplex byte Transport. Any number of logical
// clients ("handles") share the one pipe; frames are correlated by a
// 16-bit client ID carried in an 8-byte CommandHeader. Header fields are
// encoded little-endian and assume both ends share byte order — this is a
// documented, unchanged limitation carried over from the wire format this
// package implements (see DESIGN.md).
package responder

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iiodkit/responder/internal/logging"
)

// Options configures a Responder at creation time. A nil Options (or any
// unset field within one) falls back to package defaults, the same
// nil-means-default convention the teacher's backend.Options uses.
type Options struct {
	Logger  *logging.Logger
	Metrics Observer
}

// Responder owns one Transport and the reader/writer goroutine pair that
// drive it. Create a Handle per logical client with NewHandle or
// HandleForCommand; Destroy stops both goroutines and fails any handle
// left waiting.
type Responder struct {
	transport Transport
	logger    *logging.Logger
	metrics   Observer

	idMu         sync.Mutex
	nextClientID uint16

	rlock   sync.Mutex
	waiters map[uint16]*Handle

	wlock   sync.Mutex
	writers *list.List // of *pendingWrite
	wake    chan struct{}

	stopped atomic.Bool

	readerDone chan struct{}
	writerDone chan struct{}
	readerErr  error
	writerErr  error
	waitOnce   sync.Once
}

// Create spawns the reader and writer goroutines over transport and
// returns a ready Responder. If either goroutine fails to start, Create
// rolls back whatever was already started and returns the error,
// checking each goroutine's own startup status independently rather than
// checking one of them twice.
func Create(transport Transport, opts *Options) (*Responder, error) {
	if opts == nil {
		opts = &Options{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}

	r := &Responder{
		transport:  transport,
		logger:     logger,
		metrics:    metrics,
		waiters:    make(map[uint16]*Handle),
		writers:    list.New(),
		wake:       make(chan struct{}, 1),
		readerDone: make(chan struct{}),
		writerDone: make(chan struct{}),
	}

	readerStarted := make(chan error, 1)
	writerStarted := make(chan error, 1)

	go r.runReader(readerStarted)
	go r.runWriter(writerStarted)

	if err := <-readerStarted; err != nil {
		r.requestStop()
		<-r.writerDone
		return nil, err
	}
	if err := <-writerStarted; err != nil {
		r.requestStop()
		<-r.readerDone
		return nil, err
	}

	return r, nil
}

// NewHandle allocates a fresh client ID and returns a Handle for it — the
// Go port of iiod_responder_create_reader.
func (r *Responder) NewHandle() *Handle {
	return r.newHandleWithID(r.nextID())
}

// HandleForCommand returns a Handle bound to the client ID carried in an
// inbound command header, for replying to that specific peer request —
// the Go port of iiod_command_create_reader.
func (r *Responder) HandleForCommand(hdr CommandHeader) *Handle {
	return r.newHandleWithID(hdr.ClientID)
}

func (r *Responder) newHandleWithID(id uint16) *Handle {
	h := &Handle{
		responder: r,
		clientID:  id,
		wDone:     make(chan ioResult, 1),
	}
	h.rCond = sync.NewCond(&r.rlock)
	return h
}

func (r *Responder) nextID() uint16 {
	r.idMu.Lock()
	id := r.nextClientID
	r.nextClientID++
	r.idMu.Unlock()
	return id
}

// Destroy requests a stop and blocks until both goroutines have exited,
// then fails any handle still registered in waiters or the writer queue
// with ErrPipeClosed instead of leaving it to block forever.
//
// Between frames the writer goroutine blocks only on its own wake channel,
// so it exits as soon as any Transport.Write in progress returns. The
// reader goroutine blocks inside Transport.Read,
// which this package cannot interrupt: the caller must arrange for the
// underlying transport to be closed (independently, e.g. via the net.Conn
// it wraps) for a blocked Read to return and the reader to notice stopped.
// This mirrors the original C implementation, which has the identical
// requirement (the reader thread only stops cooperatively between reads).
func (r *Responder) Destroy() {
	r.requestStop()
	r.WaitDone()

	r.rlock.Lock()
	stranded := r.waiters
	r.waiters = make(map[uint16]*Handle)
	for _, h := range stranded {
		h.rResult = ioResult{err: ErrPipeClosed}
		h.rReady = true
		h.rCond.Signal()
	}
	r.rlock.Unlock()

	r.wlock.Lock()
	var strandedWriters []*pendingWrite
	for e := r.writers.Front(); e != nil; e = e.Next() {
		strandedWriters = append(strandedWriters, e.Value.(*pendingWrite))
	}
	r.writers.Init()
	r.wlock.Unlock()
	for _, w := range strandedWriters {
		w.handle.wDone <- ioResult{err: ErrPipeClosed}
		if w.cleanup != nil {
			w.cleanup(0, ErrPipeClosed)
		}
	}
}

func (r *Responder) requestStop() {
	r.stopped.Store(true)
	r.wlock.Lock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
	r.wlock.Unlock()
}

// WaitDone blocks until both the reader and writer goroutines have
// exited, however that happened (Destroy, or the transport failing on its
// own). It is idempotent: subsequent calls return immediately.
func (r *Responder) WaitDone() {
	r.waitOnce.Do(func() {
		<-r.writerDone
		<-r.readerDone
	})
}

// Metrics returns the Observer this Responder reports traffic to.
func (r *Responder) Metrics() Observer { return r.metrics }

func (r *Responder) registerWaiter(h *Handle, bufs [][]byte, cleanup cleanupFunc) {
	r.rlock.Lock()
	r.registerWaiterLocked(h, bufs, cleanup)
	r.rlock.Unlock()
}

// registerWaiterLocked is registerWaiter's body with rlock already held by
// the caller, so it can be composed into a larger critical section (see
// Handle.GetAndRequestResponse).
func (r *Responder) registerWaiterLocked(h *Handle, bufs [][]byte, cleanup cleanupFunc) {
	h.pendingRead = pendingRead{bufs: bufs, cleanup: cleanup, requested: time.Now()}
	r.waiters[h.clientID] = h
}

func (r *Responder) cancelWaiter(h *Handle) {
	r.rlock.Lock()
	if cur, ok := r.waiters[h.clientID]; ok && cur == h {
		delete(r.waiters, h.clientID)
	}
	r.rlock.Unlock()
}

func (r *Responder) cancelWriter(h *Handle) {
	r.wlock.Lock()
	if h.listElem != nil {
		r.writers.Remove(h.listElem)
		h.listElem = nil
	}
	r.wlock.Unlock()
}

func (r *Responder) enqueueWrite(h *Handle, hdr CommandHeader, bufs [][]byte, cleanup cleanupFunc) error {
	if r.stopped.Load() {
		return newClientError("SendCommand", h.clientID, ErrCodePipeClosed, "responder stopped")
	}

	w := &pendingWrite{handle: h, hdr: hdr, bufs: bufs, cleanup: cleanup}

	r.wlock.Lock()
	h.listElem = r.writers.PushBack(w)
	select {
	case r.wake <- struct{}{}:
	default:
	}
	r.wlock.Unlock()

	return nil
}

// readPayload reads up to byteCap bytes of the next frame's payload into
// bufs, truncating via the wire-level cap exactly as a response read does.
// Used both by the reader goroutine filling a waiter's buffers and by
// CommandData.Read pulling a command's payload from within a Cmd callback.
func (r *Responder) readPayload(bufs [][]byte, byteCap int) (int, error) {
	return rwAllRead(r.transport, bufs, byteCap)
}

func (r *Responder) discard(n int) error {
	for n > 0 {
		k, err := r.transport.Discard(n)
		if err != nil {
			return err
		}
		if k <= 0 {
			return ErrIO
		}
		n -= k
	}
	return nil
}
