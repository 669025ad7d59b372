package socket

import "time"

// Mode is the lifecycle state of a client connection.
type Mode uint32

const (
	// ModeActive means the transport is connected and usable.
	ModeActive Mode = iota
	// ModeReconnecting means the reconnect loop is restoring the transport.
	ModeReconnecting
	// ModeDisconnecting means a close was requested and shutdown is in progress.
	ModeDisconnecting
	// ModeClosed is terminal.
	ModeClosed
)

func (m Mode) String() string {
	switch m {
	case ModeActive:
		return "ACTIVE"
	case ModeReconnecting:
		return "RECONNECTING"
	case ModeDisconnecting:
		return "DISCONNECTING"
	case ModeClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Security selects plain or TLS transport for raw socket addresses.
type Security uint8

const (
	// SecurityPlain is an unencrypted TCP stream.
	SecurityPlain Security = iota
	// SecurityTLS wraps the TCP stream in TLS.
	SecurityTLS
)

func (s Security) String() string {
	if s == SecurityTLS {
		return "tls"
	}
	return "plain"
}

// Heartbeat is a keep-alive payload written every Interval while active.
type Heartbeat struct {
	Interval time.Duration
	Payload  []byte
}

// Handler receives every inbound frame.
// The frame is owned by the handler after the call.
type Handler interface {
	Handle(frame []byte)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(frame []byte)

// Handle calls f(frame).
func (f HandlerFunc) Handle(frame []byte) {
	f(frame)
}
