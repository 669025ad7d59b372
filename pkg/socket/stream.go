package socket

import (
	"bytes"
	"context"
	"net"
	"time"

	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

const readChunkSize = 64 << 10

// streamConn splits a byte stream into frames terminated by suffix.
// With an empty suffix every read chunk is a frame.
type streamConn struct {
	conn         net.Conn
	suffix       []byte
	maxFrameSize int

	chunk []byte
	buf   []byte
	err   error
}

func newStreamConn(conn net.Conn, suffix []byte, maxFrameSize int) *streamConn {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}
	return &streamConn{
		conn:         conn,
		suffix:       suffix,
		maxFrameSize: maxFrameSize,
		chunk:        make([]byte, readChunkSize),
	}
}

func (c *streamConn) Read(ctx context.Context) ([]byte, error) {
	for {
		if frame, ok := c.nextFrame(); ok {
			return frame, nil
		}
		if c.err != nil {
			return nil, c.err
		}
		if len(c.buf) > c.maxFrameSize {
			return nil, errors.Wrapf(exception.ErrFrameTooLarge, "%d bytes without terminator", len(c.buf))
		}
		if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
			return nil, err
		}

		n, err := c.conn.Read(c.chunk)
		if err != nil {
			c.err = err
		}
		if n <= 0 {
			continue
		}
		if len(c.suffix) == 0 {
			frame := make([]byte, n)
			copy(frame, c.chunk[:n])
			return frame, nil
		}
		c.buf = append(c.buf, c.chunk[:n]...)
	}
}

func (c *streamConn) nextFrame() ([]byte, bool) {
	if len(c.suffix) == 0 || len(c.buf) == 0 {
		return nil, false
	}
	i := bytes.Index(c.buf, c.suffix)
	if i < 0 {
		return nil, false
	}
	frame := make([]byte, i)
	copy(frame, c.buf[:i])
	rest := copy(c.buf, c.buf[i+len(c.suffix):])
	c.buf = c.buf[:rest]
	return frame, true
}

func (c *streamConn) Write(ctx context.Context, payload []byte) error {
	if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	_, err := c.conn.Write(payload)
	return err
}

func (c *streamConn) Close() error {
	return c.conn.Close()
}

func setDeadline(ctx context.Context, set func(time.Time) error) error {
	if ctx == nil {
		return set(time.Time{})
	}
	if deadline, ok := ctx.Deadline(); ok {
		return set(deadline)
	}
	if ctx.Err() != nil {
		return set(time.Now())
	}
	return set(time.Time{})
}
