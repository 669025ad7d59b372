package socket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"hftnet/pkg/backoff"
	"hftnet/pkg/exception"
	"hftnet/pkg/ratelimit"

	"github.com/google/uuid"
	"github.com/yanun0323/logs"
)

const eventQueueSize = 64

// Option carries the optional collaborators of a Client.
type Option struct {
	// Dialer overrides the dialer built from the config.
	Dialer Dialer
	// Limiter throttles Send and SendKeyed. Nil means unlimited.
	Limiter *ratelimit.Limiter
	// RateLimitKey is the limiter key used by Send.
	RateLimitKey string

	// Callbacks run on a dedicated goroutine, one at a time, in the order the
	// events happened. No client lock is held while they run. A callback that
	// blocks delays the ones after it, and once 64 events are pending the
	// reconnect supervisor waits for the queue to drain.
	OnConnect    func(c *Client)
	OnReconnect  func(c *Client)
	OnDisconnect func(c *Client)
}

// Client is a resilient connection to a single endpoint.
//
// The first dial happens in Connect. After that a supervisor goroutine
// restores the connection whenever it breaks, until Close is called or a
// reconnect cycle runs out of time.
type Client struct {
	id      string
	cfg     Config
	opt     Option
	handler Handler
	dialer  Dialer

	state   *State
	writer  *writer
	current atomic.Pointer[link]
	stats   *Stats

	// backoff is owned by the supervisor goroutine.
	backoff backoff.State

	events         chan func()
	stop           chan struct{}
	supervised     chan struct{}
	done           chan struct{}
	disconnectOnce sync.Once
}

// Connect validates cfg, dials the endpoint once and starts the client.
// Configuration and first-dial errors are returned directly; nothing is retried.
func Connect(ctx context.Context, cfg Config, handler Handler, opt Option) (*Client, error) {
	if handler == nil {
		return nil, exception.ErrNilHandler
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	dialer := opt.Dialer
	if dialer == nil {
		d, err := NewDialer(cfg)
		if err != nil {
			return nil, err
		}
		dialer = d
	}

	c := &Client{
		id:         uuid.NewString(),
		cfg:        cfg,
		opt:        opt,
		handler:    handler,
		dialer:     dialer,
		state:      NewState(ModeActive),
		writer:     newWriter(cfg.Suffix, cfg.WriteTimeout),
		stats:      &Stats{},
		events:     make(chan func(), eventQueueSize),
		stop:       make(chan struct{}),
		supervised: make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.cfg.Backoff.Reset(&c.backoff)

	conn, err := dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.URL, err)
	}
	c.install(conn)
	c.stats.incConnect()
	c.emit(opt.OnConnect)

	go c.dispatch()
	go c.supervise()
	if cfg.Heartbeat != nil {
		hb := &heartbeat{
			interval: cfg.Heartbeat.Interval,
			payload:  cfg.Heartbeat.Payload,
			state:    c.state,
			send:     c.writeHeartbeat,
			stats:    c.stats,
		}
		go hb.run(c.stop)
	}

	logs.Infof("socket %s: connected to %s", c.id, cfg.URL)
	return c, nil
}

// ID is the session id of this client, unique per Connect call.
func (c *Client) ID() string {
	return c.id
}

// URL returns the configured endpoint.
func (c *Client) URL() string {
	return c.cfg.URL
}

// Mode returns the current lifecycle mode.
func (c *Client) Mode() Mode {
	return c.state.Load()
}

// IsActive reports whether the client has a live connection.
func (c *Client) IsActive() bool {
	return c.state.Load() == ModeActive
}

// IsReconnecting reports whether a reconnect cycle is running.
// Sends fail with exception.ErrSocketReconnecting until it ends.
func (c *Client) IsReconnecting() bool {
	return c.state.Load() == ModeReconnecting
}

// IsDisconnecting reports whether Close has been requested but not finished.
func (c *Client) IsDisconnecting() bool {
	return c.state.Load() == ModeDisconnecting
}

// IsClosed reports whether the client is closed for good.
func (c *Client) IsClosed() bool {
	return c.state.Load() == ModeClosed
}

// Stats returns a snapshot of the client counters.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// Done is closed after the client is closed and every callback has returned.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Send writes payload followed by the configured suffix, using the default rate limit key.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	return c.SendKeyed(ctx, c.opt.RateLimitKey, payload)
}

// SendKeyed writes payload followed by the configured suffix after acquiring
// one unit of the rate limit for key.
//
// Every returned error matches exception.ErrSend. A failed write also moves
// the client to reconnecting.
func (c *Client) SendKeyed(ctx context.Context, key string, payload []byte) error {
	if err := c.modeError(); err != nil {
		return err
	}
	if err := c.opt.Limiter.Acquire(ctx, key); err != nil {
		return &SendError{Err: err}
	}
	if err := c.modeError(); err != nil {
		return err
	}

	l, n, err := c.writer.write(ctx, payload)
	if err != nil {
		if errors.Is(err, errNoLink) {
			if merr := c.modeError(); merr != nil {
				return merr
			}
			return exception.ErrSocketReconnecting
		}
		c.stats.incSendError()
		c.fail(l, err)
		return &SendError{Err: err}
	}
	c.stats.observeOut(n)
	return nil
}

// Reconnect drops the current connection and waits until a new one is active.
// It is a no-op when the client is already reconnecting or shutting down.
func (c *Client) Reconnect(ctx context.Context) error {
	mode := c.state.Load()
	if mode != ModeActive {
		logs.Warnf("socket %s: reconnect ignored, client is %s", c.id, mode)
		return nil
	}
	if !c.state.CompareAndSwap(ModeActive, ModeReconnecting) {
		logs.Warnf("socket %s: reconnect ignored, client is %s", c.id, c.state.Load())
		return nil
	}
	logs.Infof("socket %s: reconnect requested", c.id)
	return c.state.Await(ctx, ModeActive)
}

// Close shuts the client down and waits until it is closed.
// Calling it more than once is harmless.
func (c *Client) Close(ctx context.Context) error {
	switch mode := c.state.Load(); mode {
	case ModeClosed:
		logs.Warnf("socket %s: close ignored, client is already %s", c.id, mode)
		return nil
	case ModeDisconnecting:
		logs.Warnf("socket %s: close already in progress", c.id)
	default:
		if c.state.Transition(ModeDisconnecting) {
			logs.Infof("socket %s: closing connection to %s", c.id, c.cfg.URL)
		}
	}

	if err := c.state.Await(ctx, ModeClosed); err != nil {
		return err
	}
	select {
	case <-c.supervised:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) modeError() error {
	switch c.state.Load() {
	case ModeActive:
		return nil
	case ModeReconnecting:
		return exception.ErrSocketReconnecting
	default:
		return exception.ErrSocketClosed
	}
}

// install makes conn the current connection and starts its reader.
func (c *Client) install(conn Conn) *link {
	l := newLink(conn)
	c.current.Store(l)
	c.writer.swap(l)
	go c.read(l)
	return l
}

// teardown closes the current connection and waits for its reader to exit.
func (c *Client) teardown() {
	l := c.current.Swap(nil)
	if l == nil {
		c.writer.swap(nil)
		return
	}
	if err := l.conn.Close(); err != nil {
		logs.Debugf("socket %s: close connection, err: %+v", c.id, err)
	}
	c.writer.swap(nil)
	<-l.done
}

func (c *Client) read(l *link) {
	defer close(l.done)
	for {
		frame, err := l.conn.Read(context.Background())
		if err != nil {
			c.fail(l, err)
			return
		}
		c.stats.observeIn(len(frame))
		c.handler.Handle(frame)
	}
}

// fail reports a broken connection. Only the first report per link counts,
// and only while that link is still the current one.
func (c *Client) fail(l *link, err error) {
	if l == nil || !l.failed.CompareAndSwap(false, true) {
		return
	}
	if c.current.Load() != l {
		return
	}
	if c.state.CompareAndSwap(ModeActive, ModeReconnecting) {
		logs.Warnf("socket %s: connection to %s lost, err: %+v", c.id, c.cfg.URL, err)
	}
}

func (c *Client) writeHeartbeat(ctx context.Context, payload []byte) error {
	l, _, err := c.writer.write(ctx, payload)
	if err != nil && !errors.Is(err, errNoLink) {
		c.fail(l, err)
	}
	return err
}

// emit queues a callback. Only Connect and the supervisor goroutine call it.
func (c *Client) emit(fn func(*Client)) {
	if fn == nil {
		return
	}
	c.events <- func() { fn(c) }
}

func (c *Client) dispatch() {
	defer close(c.done)
	for fn := range c.events {
		fn()
	}
}
