package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hftnet/pkg/backoff"
	"hftnet/pkg/exception"
	"hftnet/pkg/socket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
	"client": {
		"url": "tls://fix.example.com:9443",
		"security": "tls",
		"suffix": "\u0001\n",
		"heartbeat_interval_ms": 30000,
		"heartbeat_payload": "{\"op\":\"ping\"}",
		"reconnect_timeout_ms": 15000,
		"reconnect_delay_initial_ms": 500,
		"reconnect_delay_max_ms": 8000,
		"reconnect_backoff_factor": 2,
		"reconnect_jitter_ms": 0,
		"certs_dir": "/etc/hftnet/certs",
		"headers": {"X-Api-Key": "k"}
	},
	"rate_limit": {
		"key": "orders",
		"default": {"per_second": 20},
		"keys": {"orders": {"per_second": 5, "burst": 2}}
	},
	"journal": {"host": "db", "database": "hftnet", "user": "svc"},
	"metrics": {"addr": ":9102"}
}`

func TestParse(t *testing.T) {
	loaded, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	cfg := loaded.Socket
	assert.Equal(t, "tls://fix.example.com:9443", cfg.URL)
	assert.Equal(t, socket.SecurityTLS, cfg.Security)
	assert.Equal(t, []byte("\x01\n"), cfg.Suffix)
	require.NotNil(t, cfg.Heartbeat)
	assert.Equal(t, 30*time.Second, cfg.Heartbeat.Interval)
	assert.Equal(t, `{"op":"ping"}`, string(cfg.Heartbeat.Payload))
	assert.Equal(t, 15*time.Second, cfg.ReconnectTimeout)
	assert.Equal(t, backoff.Strategy{
		Initial: 500 * time.Millisecond,
		Max:     8 * time.Second,
		Factor:  2,
		Jitter:  0,
	}, cfg.Backoff)
	assert.Equal(t, "/etc/hftnet/certs", cfg.CertsDir)
	assert.Equal(t, "k", cfg.Headers["X-Api-Key"])
	assert.Equal(t, socket.DefaultDialTimeout, cfg.DialTimeout)

	require.NotNil(t, loaded.Limiter)
	assert.Equal(t, "orders", loaded.RateLimitKey)
	q, ok := loaded.Limiter.Quota("orders")
	require.True(t, ok)
	assert.Equal(t, 5.0, q.Rate)
	assert.Equal(t, 2, q.Burst)
	q, ok = loaded.Limiter.Quota("anything")
	require.True(t, ok)
	assert.Equal(t, 20, q.Burst)

	assert.True(t, loaded.Journal.Enabled())
	assert.Equal(t, "postgres://svc@db:5432/hftnet?sslmode=disable", loaded.Journal.ConnString())
	assert.Equal(t, ":9102", loaded.MetricsAddr)
}

func TestParseDefaults(t *testing.T) {
	loaded, err := Parse([]byte(`{"client": {"url": "127.0.0.1:9000"}}`))
	require.NoError(t, err)

	assert.Equal(t, socket.DefaultConfig("127.0.0.1:9000"), loaded.Socket)
	assert.Nil(t, loaded.Limiter)
	assert.False(t, loaded.Journal.Enabled())
	assert.Empty(t, loaded.MetricsAddr)
}

func TestParseErrors(t *testing.T) {
	cases := map[string]struct {
		doc string
		err error
	}{
		"bad json":          {`{"client":`, exception.ErrInvalidConfig},
		"missing url":       {`{"client": {}}`, exception.ErrEmptyAddress},
		"unknown security":  {`{"client": {"url": "a:1", "security": "ssh"}}`, exception.ErrInvalidConfig},
		"heartbeat payload": {`{"client": {"url": "a:1", "heartbeat_interval_ms": 100}}`, exception.ErrInvalidHeartbeat},
		"bad factor":        {`{"client": {"url": "a:1", "reconnect_backoff_factor": 0.5}}`, exception.ErrInvalidBackoff},
		"bad quota":         {`{"client": {"url": "a:1"}, "rate_limit": {"keys": {"x": {"per_second": -1}}}}`, exception.ErrInvalidQuota},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "socketcat.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tls://fix.example.com:9443", loaded.Socket.URL)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
