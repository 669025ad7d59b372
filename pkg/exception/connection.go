package exception

import "errors"

// Connection errors
var (
	// ErrTransport is the single kind reported for dial, DNS and handshake failures.
	ErrTransport = errors.New("transport: connect failed")

	ErrUnsupportedScheme = errors.New("transport: unsupported url scheme")
	ErrEmptyAddress      = errors.New("transport: empty address")
	ErrNotSocket         = errors.New("transport: path exists and is not a socket")
	ErrNoCertificates    = errors.New("transport: no certificates found in certs dir")
	ErrFrameTooLarge     = errors.New("transport: frame exceeds max size")
)
