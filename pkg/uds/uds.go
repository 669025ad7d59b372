package uds

import (
	"context"
	"net"
	"os"

	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

const network = "unix"

// Dialer connects to a Unix domain socket path.
type Dialer struct {
	path   string
	dialer net.Dialer
}

// NewDialer creates a dialer for path.
func NewDialer(path string) (*Dialer, error) {
	if path == "" {
		return nil, errors.Wrap(exception.ErrEmptyAddress, "unix socket path")
	}
	return &Dialer{path: path}, nil
}

// Path returns the socket path.
func (d *Dialer) Path() string {
	return d.path
}

// DialContext opens a connection to the socket.
func (d *Dialer) DialContext(ctx context.Context) (net.Conn, error) {
	return d.dialer.DialContext(ctx, network, d.path)
}

// Listen listens on path, replacing a stale socket file left by a previous run.
// The socket file is removed again when the listener closes.
func Listen(path string) (*net.UnixListener, error) {
	if path == "" {
		return nil, errors.Wrap(exception.ErrEmptyAddress, "unix socket path")
	}
	if err := RemoveStale(path); err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix(network, &net.UnixAddr{Name: path, Net: network})
	if err != nil {
		return nil, errors.Wrapf(err, "listen unix %s", path)
	}
	ln.SetUnlinkOnClose(true)
	return ln, nil
}

// RemoveStale removes path if it is a socket. Any other kind of file is left alone.
func RemoveStale(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Mode()&os.ModeSocket == 0 {
		return errors.Wrapf(exception.ErrNotSocket, "path: %s", path)
	}
	return os.Remove(path)
}
