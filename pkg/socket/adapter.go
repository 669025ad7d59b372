package socket

import "context"

// Conn is one established transport connection.
// Read is only called from a single goroutine; Write is serialized by the client.
type Conn interface {
	// Read returns the next complete inbound frame.
	Read(ctx context.Context) ([]byte, error)
	// Write sends payload as-is.
	Write(ctx context.Context, payload []byte) error
	// Close releases the connection and unblocks pending reads and writes.
	Close() error
}

// Dialer creates new connections.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context) (Conn, error)

// Dial calls f(ctx).
func (f DialerFunc) Dial(ctx context.Context) (Conn, error) {
	return f(ctx)
}
