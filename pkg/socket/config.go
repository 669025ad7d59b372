package socket

import (
	"strings"
	"time"

	"hftnet/pkg/backoff"
	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

const (
	DefaultReconnectTimeout = 10 * time.Second
	DefaultDialTimeout      = 10 * time.Second
	DefaultKeepAlive        = 30 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultMaxFrameSize     = 4 << 20
)

// Config is fixed at construction and shared read-only by every component.
type Config struct {
	// URL is host:port, tcp://host:port, tls://host:port, ws://... or wss://...
	URL string
	// Security applies to host:port and tcp:// addresses.
	Security Security
	// Suffix is appended to every outbound payload and splits inbound streams.
	Suffix []byte
	// Heartbeat is optional.
	Heartbeat *Heartbeat
	// ReconnectTimeout bounds one reconnect cycle before the client is closed.
	ReconnectTimeout time.Duration
	// Backoff spaces out reconnect attempts.
	Backoff backoff.Strategy
	// CertsDir replaces the system roots with the PEM files in the directory.
	CertsDir string
	// Headers are sent with the websocket handshake.
	Headers map[string]string
	// BinaryFrames writes websocket binary messages instead of text.
	BinaryFrames bool

	DialTimeout  time.Duration
	WriteTimeout time.Duration
	MaxFrameSize int
}

// DefaultConfig returns a config for url with the stock timeouts and backoff.
func DefaultConfig(url string) Config {
	return Config{
		URL:              url,
		ReconnectTimeout: DefaultReconnectTimeout,
		Backoff:          backoff.DefaultStrategy(),
		DialTimeout:      DefaultDialTimeout,
		WriteTimeout:     DefaultWriteTimeout,
		MaxFrameSize:     DefaultMaxFrameSize,
	}
}

// Validate reports configuration errors before anything is dialed.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return exception.ErrEmptyAddress
	}
	if c.ReconnectTimeout <= 0 {
		return errors.Wrapf(exception.ErrInvalidConfig, "reconnect timeout must be positive, got %s", c.ReconnectTimeout)
	}
	if err := c.Backoff.Validate(); err != nil {
		return err
	}
	if c.Heartbeat != nil {
		if c.Heartbeat.Interval <= 0 {
			return errors.Wrapf(exception.ErrInvalidHeartbeat, "interval must be positive, got %s", c.Heartbeat.Interval)
		}
		if len(c.Heartbeat.Payload) == 0 {
			return errors.Wrap(exception.ErrInvalidHeartbeat, "empty payload")
		}
	}
	if c.MaxFrameSize < 0 || c.DialTimeout < 0 || c.WriteTimeout < 0 {
		return errors.Wrap(exception.ErrInvalidConfig, "negative limit")
	}
	return nil
}

// withDefaults fills zero limits and deep-copies the byte slices so callers
// cannot mutate a running client's config.
func (c Config) withDefaults() Config {
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.MaxFrameSize == 0 {
		c.MaxFrameSize = DefaultMaxFrameSize
	}
	c.Suffix = cloneBytes(c.Suffix)
	if c.Heartbeat != nil {
		c.Heartbeat = &Heartbeat{
			Interval: c.Heartbeat.Interval,
			Payload:  cloneBytes(c.Heartbeat.Payload),
		}
	}
	if c.Headers != nil {
		headers := make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		c.Headers = headers
	}
	return c
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
