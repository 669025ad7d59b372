package main

import (
	"bufio"
	"context"
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"hftnet/internal/journal"
	"hftnet/internal/metrics"
	"hftnet/internal/ops"
	"hftnet/pkg/socket"

	pyroscope "github.com/grafana/pyroscope-go"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

const (
	shutdownTimeout = 5 * time.Second
	maxLineSize     = 1 << 20
)

type flags struct {
	config           string
	url              string
	tls              bool
	suffix           string
	certsDir         string
	heartbeat        time.Duration
	heartbeatPayload string
	reconnectTimeout time.Duration
	rate             float64
	pgDSN            string
	metricsAddr      string
	pyroscopeAddr    string
}

func main() {
	if err := run(); err != nil {
		logs.Errorf("socketcat: %+v", err)
		os.Exit(1)
	}
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.config, "config", "", "JSON config file; other connection flags are ignored when set")
	flag.StringVar(&f.url, "url", "", "endpoint: host:port, tcp://, tls://, ws:// or wss://")
	flag.BoolVar(&f.tls, "tls", false, "wrap host:port and tcp:// addresses in TLS")
	flag.StringVar(&f.suffix, "suffix", `\n`, "frame terminator, Go escapes allowed")
	flag.StringVar(&f.certsDir, "certs-dir", "", "directory of PEM CA certificates")
	flag.DurationVar(&f.heartbeat, "heartbeat", 0, "heartbeat interval, 0 disables")
	flag.StringVar(&f.heartbeatPayload, "heartbeat-payload", "ping", "heartbeat payload")
	flag.DurationVar(&f.reconnectTimeout, "reconnect-timeout", socket.DefaultReconnectTimeout, "give up after reconnecting this long")
	flag.Float64Var(&f.rate, "rate", 0, "max sends per second, 0 is unlimited")
	flag.StringVar(&f.pgDSN, "pg-dsn", "", "postgres DSN for the lifecycle journal")
	flag.StringVar(&f.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")
	flag.StringVar(&f.pyroscopeAddr, "pyroscope", "", "pyroscope server address for continuous profiling")
	flag.Parse()
	return f
}

func (f flags) fileConfig() (ops.FileConfig, error) {
	suffix, err := strconv.Unquote(`"` + f.suffix + `"`)
	if err != nil {
		return ops.FileConfig{}, errors.Wrapf(err, "parse suffix %q", f.suffix)
	}
	cfg := ops.FileConfig{
		Client: ops.ClientConfig{
			URL:                strings.TrimSpace(f.url),
			Suffix:             suffix,
			CertsDir:           f.certsDir,
			ReconnectTimeoutMs: f.reconnectTimeout.Milliseconds(),
		},
		Metrics: ops.MetricsConfig{Addr: f.metricsAddr},
	}
	if f.tls {
		cfg.Client.Security = "tls"
	}
	if f.heartbeat > 0 {
		cfg.Client.HeartbeatIntervalMs = f.heartbeat.Milliseconds()
		cfg.Client.HeartbeatPayload = f.heartbeatPayload
	}
	if f.rate > 0 {
		cfg.RateLimit.Default = &ops.QuotaConfig{PerSecond: f.rate}
	}
	return cfg, nil
}

func load(f flags) (ops.Loaded, error) {
	if f.config != "" {
		return ops.Load(f.config)
	}
	cfg, err := f.fileConfig()
	if err != nil {
		return ops.Loaded{}, err
	}
	return ops.Resolve(cfg)
}

func run() error {
	f := parseFlags()
	loaded, err := load(f)
	if err != nil {
		return err
	}
	if f.pgDSN != "" {
		loaded.Journal.DSN = f.pgDSN
	}
	if f.metricsAddr != "" {
		loaded.MetricsAddr = f.metricsAddr
	}

	if f.pyroscopeAddr != "" {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: "hftnet.socketcat",
			ServerAddress:   f.pyroscopeAddr,
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return errors.Wrap(err, "start pyroscope")
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	opt := socket.Option{
		Limiter:      loaded.Limiter,
		RateLimitKey: loaded.RateLimitKey,
	}

	if loaded.Journal.Enabled() {
		store, err := journal.OpenPostgres(loaded.Journal)
		if err != nil {
			return err
		}
		j, err := journal.New(store, journal.Option{})
		if err != nil {
			_ = store.Close()
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := j.Close(ctx); err != nil {
				logs.Warnf("socketcat: close journal, err: %+v", err)
			}
		}()
		opt = j.Hooks(opt)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := socket.Connect(ctx, loaded.Socket, socket.HandlerFunc(printFrame), opt)
	if err != nil {
		return err
	}

	if loaded.MetricsAddr != "" {
		collector := metrics.NewCollector()
		collector.Track(client)
		srv, err := metrics.NewServer(loaded.MetricsAddr, collector)
		if err != nil {
			return err
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil {
				logs.Errorf("socketcat: %+v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Stop(ctx)
		}()
	}

	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		relayStdin(ctx, client)
	}()

	select {
	case <-sys.Shutdown():
		logs.Info("socketcat: shutdown signal received")
	case <-stdinDone:
		logs.Info("socketcat: stdin closed")
	case <-client.Done():
		logs.Warnf("socketcat: connection to %s closed", client.URL())
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()
	if err := client.Close(closeCtx); err != nil {
		return errors.Wrap(err, "close client")
	}
	select {
	case <-client.Done():
	case <-closeCtx.Done():
	}
	return nil
}

func printFrame(frame []byte) {
	_, _ = os.Stdout.Write(append(frame, '\n'))
}

func relayStdin(ctx context.Context, client *socket.Client) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64<<10), maxLineSize)
	for scanner.Scan() {
		if err := client.Send(ctx, scanner.Bytes()); err != nil {
			logs.Warnf("socketcat: send, err: %+v", err)
			if client.IsClosed() {
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		logs.Warnf("socketcat: read stdin, err: %+v", err)
	}
}
