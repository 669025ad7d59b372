package socket

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"strings"

	"hftnet/pkg/exception"
	"hftnet/pkg/uds"

	"github.com/gorilla/websocket"
	"github.com/yanun0323/errors"
)

// NewDialer builds the transport dialer for cfg.URL.
// TLS material is loaded here, so certificate problems surface before the first dial.
func NewDialer(cfg Config) (Dialer, error) {
	cfg = cfg.withDefaults()
	target := strings.TrimSpace(cfg.URL)
	if target == "" {
		return nil, exception.ErrEmptyAddress
	}

	if !strings.Contains(target, "://") {
		return newTCPDialer(cfg, target, cfg.Security == SecurityTLS)
	}

	u, err := url.Parse(target)
	if err != nil {
		return nil, errors.Wrapf(exception.ErrInvalidConfig, "parse url %s, err: %+v", target, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "tcp":
		return newTCPDialer(cfg, u.Host, cfg.Security == SecurityTLS)
	case "tls", "ssl":
		return newTCPDialer(cfg, u.Host, true)
	case "unix":
		return newUnixDialer(cfg, u)
	case "ws":
		return newWSDialer(cfg, u, false)
	case "wss":
		return newWSDialer(cfg, u, true)
	default:
		return nil, errors.Wrapf(exception.ErrUnsupportedScheme, "scheme: %s", u.Scheme)
	}
}

// streamDialer dials a byte stream and frames it with the configured suffix.
type streamDialer struct {
	addr      string
	dial      func(ctx context.Context) (net.Conn, error)
	tlsConfig *tls.Config
	suffix    []byte
	maxFrame  int
}

func newTCPDialer(cfg Config, addr string, secure bool) (*streamDialer, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, errors.Wrapf(exception.ErrInvalidConfig, "address %q, err: %+v", addr, err)
	}
	netDialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: DefaultKeepAlive,
	}
	d := &streamDialer{
		addr: addr,
		dial: func(ctx context.Context) (net.Conn, error) {
			conn, err := netDialer.DialContext(ctx, "tcp", addr)
			if err != nil {
				return nil, err
			}
			if tcpConn, ok := conn.(*net.TCPConn); ok {
				_ = tcpConn.SetNoDelay(true)
			}
			return conn, nil
		},
		suffix:   cfg.Suffix,
		maxFrame: cfg.MaxFrameSize,
	}
	if secure {
		if d.tlsConfig, err = newTLSConfig(host, cfg.CertsDir); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// newUnixDialer handles unix:///path/to.sock. Unix sockets are never wrapped in TLS.
func newUnixDialer(cfg Config, u *url.URL) (*streamDialer, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	unixDialer, err := uds.NewDialer(path)
	if err != nil {
		return nil, err
	}
	return &streamDialer{
		addr: "unix://" + path,
		dial: func(ctx context.Context) (net.Conn, error) {
			if cfg.DialTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
				defer cancel()
			}
			return unixDialer.DialContext(ctx)
		},
		suffix:   cfg.Suffix,
		maxFrame: cfg.MaxFrameSize,
	}, nil
}

func (d *streamDialer) Dial(ctx context.Context) (Conn, error) {
	rawConn, err := d.dial(ctx)
	if err != nil {
		return nil, &TransportError{Addr: d.addr, Err: err}
	}
	if d.tlsConfig == nil {
		return newStreamConn(rawConn, d.suffix, d.maxFrame), nil
	}

	tlsConn := tls.Client(rawConn, d.tlsConfig.Clone())
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, &TransportError{Addr: d.addr, Err: err}
	}
	return newStreamConn(tlsConn, d.suffix, d.maxFrame), nil
}

type wsDialer struct {
	url      string
	header   http.Header
	dialer   websocket.Dialer
	binary   bool
	maxFrame int
}

func newWSDialer(cfg Config, u *url.URL, secure bool) (*wsDialer, error) {
	if u.Host == "" {
		return nil, errors.Wrapf(exception.ErrInvalidConfig, "missing host in %s", u.String())
	}
	header := http.Header{}
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}
	netDialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: DefaultKeepAlive,
	}
	d := &wsDialer{
		url:    u.String(),
		header: header,
		dialer: websocket.Dialer{
			NetDialContext:   netDialer.DialContext,
			HandshakeTimeout: cfg.DialTimeout,
			ReadBufferSize:   readChunkSize,
			WriteBufferSize:  readChunkSize,
		},
		binary:   cfg.BinaryFrames,
		maxFrame: cfg.MaxFrameSize,
	}
	if secure {
		tlsConfig, err := newTLSConfig(u.Hostname(), cfg.CertsDir)
		if err != nil {
			return nil, err
		}
		d.dialer.TLSClientConfig = tlsConfig
	}
	return d, nil
}

func (d *wsDialer) Dial(ctx context.Context) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, d.header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &TransportError{Addr: d.url, Err: err}
	}
	return newWSConn(conn, d.binary, d.maxFrame), nil
}
