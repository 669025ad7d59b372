package socket

import (
	"testing"
	"time"

	"hftnet/pkg/backoff"
	"hftnet/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("127.0.0.1:9000")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10*time.Second, cfg.ReconnectTimeout)
	assert.Equal(t, backoff.DefaultStrategy(), cfg.Backoff)
	assert.Equal(t, SecurityPlain, cfg.Security)
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		err    error
	}{
		{"empty url", func(c *Config) { c.URL = " " }, exception.ErrEmptyAddress},
		{"zero reconnect timeout", func(c *Config) { c.ReconnectTimeout = 0 }, exception.ErrInvalidConfig},
		{"bad backoff", func(c *Config) { c.Backoff.Factor = 0.5 }, exception.ErrInvalidBackoff},
		{"heartbeat interval", func(c *Config) { c.Heartbeat = &Heartbeat{Payload: []byte("ping")} }, exception.ErrInvalidHeartbeat},
		{"heartbeat payload", func(c *Config) { c.Heartbeat = &Heartbeat{Interval: time.Second} }, exception.ErrInvalidHeartbeat},
		{"negative frame size", func(c *Config) { c.MaxFrameSize = -1 }, exception.ErrInvalidConfig},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig("127.0.0.1:9000")
			tc.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.err)
		})
	}
}

func TestWithDefaultsCopiesSlices(t *testing.T) {
	suffix := []byte("\n")
	payload := []byte("ping")
	headers := map[string]string{"X-Key": "a"}
	cfg := Config{
		URL:       "127.0.0.1:9000",
		Suffix:    suffix,
		Heartbeat: &Heartbeat{Interval: time.Second, Payload: payload},
		Headers:   headers,
	}.withDefaults()

	suffix[0] = '!'
	payload[0] = 'x'
	headers["X-Key"] = "b"

	assert.Equal(t, []byte("\n"), cfg.Suffix)
	assert.Equal(t, []byte("ping"), cfg.Heartbeat.Payload)
	assert.Equal(t, "a", cfg.Headers["X-Key"])
	assert.Equal(t, DefaultDialTimeout, cfg.DialTimeout)
	assert.Equal(t, DefaultMaxFrameSize, cfg.MaxFrameSize)
}
