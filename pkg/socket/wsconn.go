package socket

import (
	"context"
	"errors"
	"time"

	"hftnet/pkg/exception"

	"github.com/gorilla/websocket"
	yerrors "github.com/yanun0323/errors"
)

const closeWriteTimeout = time.Second

// wsConn is a websocket connection where every message is one frame.
type wsConn struct {
	conn    *websocket.Conn
	msgType int
}

func newWSConn(conn *websocket.Conn, binary bool, maxFrameSize int) *wsConn {
	if maxFrameSize > 0 {
		conn.SetReadLimit(int64(maxFrameSize))
	}
	msgType := websocket.TextMessage
	if binary {
		msgType = websocket.BinaryMessage
	}
	return &wsConn{conn: conn, msgType: msgType}
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	if err := setDeadline(ctx, c.conn.SetReadDeadline); err != nil {
		return nil, err
	}
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		if errors.Is(err, websocket.ErrReadLimit) {
			return nil, yerrors.Wrap(exception.ErrFrameTooLarge, err.Error())
		}
		return nil, err
	}
	return data, nil
}

func (c *wsConn) Write(ctx context.Context, payload []byte) error {
	if err := setDeadline(ctx, c.conn.SetWriteDeadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(c.msgType, payload)
}

func (c *wsConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWriteTimeout),
	)
	return c.conn.Close()
}
