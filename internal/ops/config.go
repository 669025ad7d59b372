package ops

import (
	"os"
	"strings"
	"time"

	"hftnet/internal/journal"
	"hftnet/pkg/backoff"
	"hftnet/pkg/exception"
	"hftnet/pkg/ratelimit"
	"hftnet/pkg/socket"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Client    ClientConfig           `json:"client"`
	RateLimit RateLimitConfig        `json:"rate_limit"`
	Journal   journal.PostgresConfig `json:"journal"`
	Metrics   MetricsConfig          `json:"metrics"`
}

// ClientConfig describes one socket client. Durations are in milliseconds.
type ClientConfig struct {
	URL      string `json:"url"`
	Security string `json:"security"`
	Suffix   string `json:"suffix"`

	HeartbeatIntervalMs int64  `json:"heartbeat_interval_ms"`
	HeartbeatPayload    string `json:"heartbeat_payload"`

	ReconnectTimeoutMs      int64   `json:"reconnect_timeout_ms"`
	ReconnectDelayInitialMs int64   `json:"reconnect_delay_initial_ms"`
	ReconnectDelayMaxMs     int64   `json:"reconnect_delay_max_ms"`
	ReconnectBackoffFactor  float64 `json:"reconnect_backoff_factor"`
	ReconnectJitterMs       *int64  `json:"reconnect_jitter_ms"`

	CertsDir     string            `json:"certs_dir"`
	Headers      map[string]string `json:"headers"`
	BinaryFrames bool              `json:"binary_frames"`

	DialTimeoutMs  int64 `json:"dial_timeout_ms"`
	WriteTimeoutMs int64 `json:"write_timeout_ms"`
	MaxFrameSize   int   `json:"max_frame_size"`
}

// RateLimitConfig describes the send quotas.
type RateLimitConfig struct {
	Key     string                 `json:"key"`
	Default *QuotaConfig           `json:"default"`
	Keys    map[string]QuotaConfig `json:"keys"`
}

// QuotaConfig is a refill rate per second and a burst size.
// A zero burst defaults to the per-second rate rounded up.
type QuotaConfig struct {
	PerSecond float64 `json:"per_second"`
	Burst     int     `json:"burst"`
}

// MetricsConfig enables the prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `json:"addr"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Socket       socket.Config
	Limiter      *ratelimit.Limiter
	RateLimitKey string
	Journal      journal.PostgresConfig
	MetricsAddr  string
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Parse resolves a JSON config document.
func Parse(data []byte) (Loaded, error) {
	var cfg FileConfig
	if err := sonic.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, errors.Wrapf(exception.ErrInvalidConfig, "decode config, err: %+v", err)
	}
	return Resolve(cfg)
}

// Resolve turns a FileConfig into runtime values, applying defaults for unset fields.
func Resolve(cfg FileConfig) (Loaded, error) {
	sock, err := resolveClient(cfg.Client)
	if err != nil {
		return Loaded{}, err
	}
	limiter, err := resolveLimiter(cfg.RateLimit)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Socket:       sock,
		Limiter:      limiter,
		RateLimitKey: cfg.RateLimit.Key,
		Journal:      cfg.Journal,
		MetricsAddr:  cfg.Metrics.Addr,
	}, nil
}

func resolveClient(cfg ClientConfig) (socket.Config, error) {
	out := socket.DefaultConfig(strings.TrimSpace(cfg.URL))

	switch strings.ToLower(cfg.Security) {
	case "", "plain":
		out.Security = socket.SecurityPlain
	case "tls":
		out.Security = socket.SecurityTLS
	default:
		return socket.Config{}, errors.Wrapf(exception.ErrInvalidConfig, "unknown security %q", cfg.Security)
	}

	if cfg.Suffix != "" {
		out.Suffix = []byte(cfg.Suffix)
	}
	if cfg.HeartbeatIntervalMs > 0 || cfg.HeartbeatPayload != "" {
		out.Heartbeat = &socket.Heartbeat{
			Interval: millis(cfg.HeartbeatIntervalMs),
			Payload:  []byte(cfg.HeartbeatPayload),
		}
	}

	if cfg.ReconnectTimeoutMs != 0 {
		out.ReconnectTimeout = millis(cfg.ReconnectTimeoutMs)
	}
	out.Backoff = resolveBackoff(cfg)

	out.CertsDir = cfg.CertsDir
	out.Headers = cfg.Headers
	out.BinaryFrames = cfg.BinaryFrames
	if cfg.DialTimeoutMs != 0 {
		out.DialTimeout = millis(cfg.DialTimeoutMs)
	}
	if cfg.WriteTimeoutMs != 0 {
		out.WriteTimeout = millis(cfg.WriteTimeoutMs)
	}
	if cfg.MaxFrameSize != 0 {
		out.MaxFrameSize = cfg.MaxFrameSize
	}

	if err := out.Validate(); err != nil {
		return socket.Config{}, err
	}
	return out, nil
}

func resolveBackoff(cfg ClientConfig) backoff.Strategy {
	s := backoff.DefaultStrategy()
	if cfg.ReconnectDelayInitialMs != 0 {
		s.Initial = millis(cfg.ReconnectDelayInitialMs)
	}
	if cfg.ReconnectDelayMaxMs != 0 {
		s.Max = millis(cfg.ReconnectDelayMaxMs)
	}
	if cfg.ReconnectBackoffFactor != 0 {
		s.Factor = cfg.ReconnectBackoffFactor
	}
	if cfg.ReconnectJitterMs != nil {
		s.Jitter = millis(*cfg.ReconnectJitterMs)
	}
	return s
}

func resolveLimiter(cfg RateLimitConfig) (*ratelimit.Limiter, error) {
	if cfg.Default == nil && len(cfg.Keys) == 0 {
		return nil, nil
	}

	var def *ratelimit.Quota
	if cfg.Default != nil {
		q, err := resolveQuota(*cfg.Default)
		if err != nil {
			return nil, errors.Wrap(err, "default quota")
		}
		def = &q
	}
	keyed := make(map[string]ratelimit.Quota, len(cfg.Keys))
	for key, qc := range cfg.Keys {
		q, err := resolveQuota(qc)
		if err != nil {
			return nil, errors.Wrapf(err, "quota %s", key)
		}
		keyed[key] = q
	}
	return ratelimit.New(def, keyed), nil
}

func resolveQuota(cfg QuotaConfig) (ratelimit.Quota, error) {
	q := ratelimit.Quota{Rate: cfg.PerSecond, Burst: cfg.Burst}
	if q.Burst == 0 && q.Rate > 0 {
		q.Burst = int(q.Rate)
		if float64(q.Burst) < q.Rate {
			q.Burst++
		}
	}
	if err := q.Validate(); err != nil {
		return ratelimit.Quota{}, err
	}
	return q, nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
