package responder

import "github.com/iiodkit/responder/internal/wire"

// rwAllWrite drives wire.RWAll against t.Write with no byte cap — writes
// always send every descriptor in full, unlike capped response reads.
func rwAllWrite(t Transport, bufs [][]byte) (int, error) {
	return wire.RWAll(bufs, 0, false, func(b [][]byte) (int, error) {
		return t.Write(b)
	})
}

// runWriter is the writer goroutine: the Go port of
// iiod_responder_writer_thrd. It owns the transport's write side
// exclusively, draining a FIFO of pendingWrite entries (enqueued by any
// number of Handle callers) and serializing each as header-then-payload.
func (r *Responder) runWriter(started chan<- error) {
	defer close(r.writerDone)
	started <- nil

	for {
		w, ok := r.nextWrite()
		if !ok {
			break
		}

		hdrBuf := wire.EncodeHeader(w.hdr.ClientID, uint8(w.hdr.Op), w.hdr.Dev, w.hdr.Code)
		bufs := make([][]byte, 0, 1+len(w.bufs))
		bufs = append(bufs, hdrBuf[:])
		bufs = append(bufs, w.bufs...)

		n, err := rwAllWrite(r.transport, bufs)
		if err != nil {
			err = wrapTransportError("Write", err)
			r.metrics.ObserveTransportError()
		} else {
			r.metrics.ObserveFrameSent(uint64(n - len(hdrBuf)))
		}

		w.handle.wDone <- ioResult{err: err}
		if w.cleanup != nil {
			w.cleanup(n, err)
		}
	}

	r.stopped.Store(true)
}

// nextWrite blocks until either a pendingWrite is queued or the responder
// is asked to stop with the queue empty, mirroring the writer condvar wait
// loop (`while (!priv->writers && !priv->thrd_stop) iio_cond_wait(...)`).
func (r *Responder) nextWrite() (*pendingWrite, bool) {
	for {
		r.wlock.Lock()
		if elem := r.writers.Front(); elem != nil {
			w := elem.Value.(*pendingWrite)
			r.writers.Remove(elem)
			w.handle.listElem = nil
			r.wlock.Unlock()
			return w, true
		}
		if r.stopped.Load() {
			r.wlock.Unlock()
			return nil, false
		}
		r.wlock.Unlock()

		<-r.wake
	}
}
