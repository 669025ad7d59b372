package socket

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// link is one dialed connection together with its reader goroutine.
type link struct {
	conn Conn
	// done is closed when the reader goroutine exits.
	done chan struct{}
	// failed is set once by whichever side notices the connection broke first.
	failed atomic.Bool
}

func newLink(conn Conn) *link {
	return &link{conn: conn, done: make(chan struct{})}
}

// writer serializes outbound payloads onto the current link.
// Only one payload is ever in flight, so frames never interleave.
type writer struct {
	mu      sync.Mutex
	link    *link
	suffix  []byte
	timeout time.Duration
	buf     []byte
}

func newWriter(suffix []byte, timeout time.Duration) *writer {
	return &writer{suffix: suffix, timeout: timeout}
}

func (w *writer) swap(l *link) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.link = l
}

// write sends payload plus suffix and reports the link it was written to.
func (w *writer) write(ctx context.Context, payload []byte) (*link, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	l := w.link
	if l == nil {
		return nil, 0, errNoLink
	}

	frame := payload
	if len(w.suffix) > 0 {
		w.buf = append(append(w.buf[:0], payload...), w.suffix...)
		frame = w.buf
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := l.conn.Write(ctx, frame); err != nil {
		return l, 0, err
	}
	return l, len(frame), nil
}
