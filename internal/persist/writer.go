// Package persist keeps the drawing raster in durable storage without
// letting storage latency reach the frame pipeline.
package persist

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ayusman/easel/internal/store"
)

// ErrPersistenceUnavailable is returned when storage cannot be read or written.
var ErrPersistenceUnavailable = errors.New("persistence unavailable")

// Repository is the durable key-value storage the writer uses.
type Repository interface {
	Get(key string) (*store.Drawing, error)
	Put(d *store.Drawing) error
	Delete(key string) error
}

// Snapshot is a frozen raster that can be encoded into an opaque blob.
type Snapshot interface {
	Encode() ([]byte, error)
	Close() error
}

// Writer persists raster snapshots under a single key.
//
// Submit and Clear never block on storage: the latest snapshot waits in a
// single slot, older pending snapshots are dropped, and deletes run on the
// writer goroutine. After any storage or codec failure the writer degrades to
// in-memory only for the rest of its life.
type Writer struct {
	repo      Repository
	key       string
	sessionID string

	mu         sync.Mutex
	pending    Snapshot
	pendingSeq uint64
	pendingGen uint64
	seq        uint64
	clearing   bool
	closed     bool

	// ioMu orders storage operations; written is the last stored seq.
	ioMu    sync.Mutex
	written uint64

	gen      atomic.Uint64
	degraded atomic.Bool
	writes   atomic.Int64

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

// NewWriter creates a Writer and starts its background goroutine.
func NewWriter(repo Repository, key, sessionID string) *Writer {
	w := &Writer{
		repo:      repo,
		key:       key,
		sessionID: sessionID,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go w.run()
	return w
}

// Load returns the stored blob, or ok=false if nothing is stored.
// A read failure degrades the writer.
func (w *Writer) Load() (data []byte, ok bool, err error) {
	w.ioMu.Lock()
	defer w.ioMu.Unlock()

	d, err := w.repo.Get(w.key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, nil
		}
		w.fail("read", err)
		return nil, false, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	return d.Data, true, nil
}

// Submit hands a snapshot to the background writer. The writer owns the
// snapshot from here on and closes it.
func (w *Writer) Submit(s Snapshot) {
	if s == nil {
		return
	}

	w.mu.Lock()
	if w.closed || w.degraded.Load() {
		w.mu.Unlock()
		s.Close()
		return
	}
	if w.pending != nil {
		w.pending.Close()
	}
	w.seq++
	w.pending = s
	w.pendingSeq = w.seq
	w.pendingGen = w.gen.Load()
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Clear drops any pending snapshot and schedules deletion of the stored
// blob. It never waits on storage; Flush or Close make the deletion durable.
// A failed delete degrades the writer.
func (w *Writer) Clear() {
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Close()
		w.pending = nil
	}
	w.gen.Add(1)
	w.clearing = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush applies the scheduled clear and writes the pending snapshot, if
// any, before returning.
func (w *Writer) Flush() {
	w.drain()
}

// Close flushes the pending snapshot and stops the background goroutine.
// Further submissions are discarded.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.stop)
	<-w.done
	return nil
}

// Degrade switches the writer to in-memory only.
func (w *Writer) Degrade(reason error) {
	w.fail("restore", reason)
}

// Degraded reports whether persistence has been disabled after a failure.
func (w *Writer) Degraded() bool {
	return w.degraded.Load()
}

// Writes returns the number of snapshots stored so far.
func (w *Writer) Writes() int64 {
	return w.writes.Load()
}

func (w *Writer) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

// drain applies a scheduled clear, then encodes and stores the pending
// snapshot. Stale snapshots, those taken before a Clear or older than what
// is already stored, are skipped.
func (w *Writer) drain() {
	w.ioMu.Lock()
	defer w.ioMu.Unlock()

	w.mu.Lock()
	s, seq, gen := w.pending, w.pendingSeq, w.pendingGen
	clearing := w.clearing
	w.pending = nil
	w.clearing = false
	w.mu.Unlock()

	if clearing {
		if err := w.repo.Delete(w.key); err != nil {
			w.fail("delete", err)
		}
	}

	if s == nil {
		return
	}
	defer s.Close()

	if w.degraded.Load() {
		return
	}

	data, err := s.Encode()
	if err != nil {
		w.fail("encode", err)
		return
	}

	if gen != w.gen.Load() || seq <= w.written {
		return
	}

	if err := w.repo.Put(&store.Drawing{Key: w.key, Data: data, SessionID: w.sessionID}); err != nil {
		w.fail("write", err)
		return
	}
	w.written = seq
	w.writes.Add(1)
}

func (w *Writer) fail(op string, err error) {
	if w.degraded.CompareAndSwap(false, true) {
		log.Printf("Drawing %s failed, continuing in memory only: %v", op, err)
	}
}
