package logboot

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/diode"
	"go.uber.org/atomic"
)

const pollInterval = 10 * time.Millisecond

// Guard owns the background worker that flushes the non-blocking file writer.
//
// Keep it for as long as the process logs, typically with defer in main.
// Close asks the worker to drain every buffered record, stops it and closes
// the file. Records still buffered when the process exits without Close are lost.
type Guard struct {
	writer  *diode.Writer
	once    sync.Once
	err     error
	closed  atomic.Bool
	dropped atomic.Int64
}

// newNonBlocking wraps w so that writes never block on I/O. When the buffer of
// size records is full, the oldest unread records are dropped and counted.
func newNonBlocking(w io.WriteCloser, size int) (io.Writer, *Guard) {
	if size <= 0 {
		size = DefaultBufferSize
	}
	g := &Guard{}
	dw := diode.NewWriter(w, size, pollInterval, func(missed int) {
		g.dropped.Add(int64(missed))
	})
	g.writer = &dw
	return dw, g
}

// Close drains and stops the flush worker and closes the underlying file.
// It is safe to call more than once and on a nil Guard.
func (g *Guard) Close() error {
	if g == nil {
		return nil
	}
	g.once.Do(func() {
		g.closed.Store(true)
		if g.writer != nil {
			g.err = g.writer.Close()
		}
	})
	return g.err
}

// Closed reports whether Close has been called.
func (g *Guard) Closed() bool {
	return g != nil && g.closed.Load()
}

// Dropped is the number of records discarded because the buffer was full.
func (g *Guard) Dropped() int64 {
	if g == nil {
		return 0
	}
	return g.dropped.Load()
}
