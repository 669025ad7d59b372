package socket

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// supervise drives the lifecycle after Connect. It is the only goroutine that
// dials, tears down connections or moves the client to Closed.
func (c *Client) supervise() {
	defer close(c.supervised)
	for {
		switch c.state.Load() {
		case ModeReconnecting:
			c.reconnect()
		case ModeDisconnecting:
			c.finalize()
			return
		case ModeClosed:
			return
		default:
			<-c.state.Changed()
		}
	}
}

// reconnect runs one reconnect cycle, bounded by Config.ReconnectTimeout.
// When the budget runs out the client is closed.
func (c *Client) reconnect() {
	c.stats.incReconnectCycle()
	logs.Infof("socket %s: reconnecting to %s", c.id, c.cfg.URL)
	c.teardown()

	deadline := time.Now().Add(c.cfg.ReconnectTimeout)
	for c.state.Load() == ModeReconnecting && time.Now().Before(deadline) {
		ctx, cancel := context.WithDeadline(context.Background(), deadline)
		conn, err := c.dialer.Dial(ctx)
		cancel()
		c.stats.incReconnectAttempt(err != nil)

		if err == nil {
			c.restore(conn)
			return
		}

		delay := c.cfg.Backoff.Next(&c.backoff)
		if remaining := time.Until(deadline); delay > remaining {
			delay = remaining
		}
		logs.Warnf("socket %s: reconnect attempt %d to %s failed, retry in %s, err: %+v",
			c.id, c.backoff.Failures, c.cfg.URL, delay, err)
		c.sleep(delay)
	}

	if c.state.Load() == ModeReconnecting {
		logs.Errorf("socket %s: reconnect to %s timed out after %s, closing", c.id, c.cfg.URL, c.cfg.ReconnectTimeout)
		c.finalize()
	}
}

// restore installs a freshly dialed connection. If the client stopped
// reconnecting in the meantime, the connection is closed again.
func (c *Client) restore(conn Conn) {
	l := c.install(conn)
	c.stats.incConnect()
	if !c.state.CompareAndSwap(ModeReconnecting, ModeActive) {
		logs.Infof("socket %s: drop new connection, client is %s", c.id, c.state.Load())
		c.teardown()
		return
	}
	c.cfg.Backoff.Reset(&c.backoff)
	logs.Infof("socket %s: reconnected to %s", c.id, c.cfg.URL)
	c.emit(c.opt.OnReconnect)

	// the reader may have failed before the mode was active
	if l.failed.Load() {
		c.state.CompareAndSwap(ModeActive, ModeReconnecting)
	}
}

// sleep waits for d, or less if the client stops reconnecting.
func (c *Client) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case <-c.state.Changed():
			if c.state.Load() != ModeReconnecting {
				return
			}
		}
	}
}

// finalize releases everything and moves the client to Closed.
func (c *Client) finalize() {
	c.teardown()
	close(c.stop)
	c.state.Transition(ModeClosed)
	logs.Infof("socket %s: closed connection to %s", c.id, c.cfg.URL)

	c.disconnectOnce.Do(func() {
		c.emit(c.opt.OnDisconnect)
		close(c.events)
	})
}
