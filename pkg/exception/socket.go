package exception

import "errors"

// Socket client errors
var (
	// ErrSend is matched by every error returned from a send.
	ErrSend = errors.New("socket: send failed")

	ErrSocketClosed       = &sendError{msg: "socket: closed"}
	ErrSocketReconnecting = &sendError{msg: "socket: reconnecting"}

	ErrNilHandler       = errors.New("socket: nil handler")
	ErrInvalidBackoff   = errors.New("socket: invalid backoff")
	ErrInvalidHeartbeat = errors.New("socket: invalid heartbeat")
)

// sendError is a send failure that also matches ErrSend.
type sendError struct {
	msg string
}

func (e *sendError) Error() string {
	return e.msg
}

func (e *sendError) Is(target error) bool {
	return target == ErrSend
}
