package socket

import (
	"errors"

	"hftnet/pkg/exception"
)

var errNoLink = errors.New("socket: no live connection")

// TransportError is a failed dial, DNS lookup or handshake.
// The reconnect loop does not distinguish between causes.
type TransportError struct {
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return "transport: connect " + e.Addr + ", err: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches exception.ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == exception.ErrTransport
}

// SendError is a failed write on the outbound half of the connection.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return "socket: send failed, err: " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Is matches exception.ErrSend.
func (e *SendError) Is(target error) bool {
	return target == exception.ErrSend
}
