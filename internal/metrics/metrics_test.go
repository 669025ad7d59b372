package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"hftnet/pkg/socket"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	id    string
	url   string
	mode  socket.Mode
	stats socket.StatsSnapshot
}

func (f *fakeSource) ID() string { return f.id }
func (f *fakeSource) URL() string { return f.url }
func (f *fakeSource) Mode() socket.Mode { return f.mode }
func (f *fakeSource) Stats() socket.StatsSnapshot { return f.stats }

func gather(t *testing.T, c *Collector) map[string][]*dto.Metric {
	t.Helper()
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string][]*dto.Metric, len(families))
	for _, f := range families {
		out[f.GetName()] = f.GetMetric()
	}
	return out
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestCollectorExportsStats(t *testing.T) {
	c := NewCollector()
	c.Track(&fakeSource{
		id:   "c1",
		url:  "tcp://127.0.0.1:9000",
		mode: socket.ModeReconnecting,
		stats: socket.StatsSnapshot{
			Connects:          3,
			ReconnectCycles:   2,
			ReconnectAttempts: 5,
			ReconnectFailures: 3,
			FramesOut:         7,
			BytesOut:          70,
		},
	})

	assert.Equal(t, 14, testutil.CollectAndCount(c))

	families := gather(t, c)
	connects := families["hftnet_socket_connects_total"]
	require.Len(t, connects, 1)
	assert.Equal(t, 3.0, connects[0].GetCounter().GetValue())
	assert.Equal(t, "c1", label(connects[0], "client"))
	assert.Equal(t, "tcp://127.0.0.1:9000", label(connects[0], "url"))

	assert.Equal(t, 70.0, families["hftnet_socket_bytes_sent_total"][0].GetCounter().GetValue())

	modes := families["hftnet_socket_mode"]
	require.Len(t, modes, 4)
	for _, m := range modes {
		want := 0.0
		if label(m, "mode") == "RECONNECTING" {
			want = 1
		}
		assert.Equal(t, want, m.GetGauge().GetValue(), label(m, "mode"))
	}
}

func TestCollectorUntrack(t *testing.T) {
	c := NewCollector()
	c.Track(&fakeSource{id: "a"})
	c.Track(&fakeSource{id: "b"})
	assert.Equal(t, 28, testutil.CollectAndCount(c))

	c.Untrack("a")
	assert.Equal(t, 14, testutil.CollectAndCount(c))
	assert.Equal(t, 4, testutil.CollectAndCount(c, "hftnet_socket_mode"))
}

func TestServerServesMetrics(t *testing.T) {
	c := NewCollector()
	c.Track(&fakeSource{id: "c1", url: "ws://example", stats: socket.StatsSnapshot{Heartbeats: 9}})

	srv, err := NewServer("127.0.0.1:0", c)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `hftnet_socket_heartbeats_total{client="c1",url="ws://example"} 9`), string(body))

	resp, err = http.Get(base + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-served)
}
