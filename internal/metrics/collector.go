package metrics

import (
	"sync"

	"hftnet/pkg/socket"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hftnet"

// Source is anything that reports socket client stats. *socket.Client implements it.
type Source interface {
	ID() string
	URL() string
	Mode() socket.Mode
	Stats() socket.StatsSnapshot
}

var modes = []socket.Mode{socket.ModeActive, socket.ModeReconnecting, socket.ModeDisconnecting, socket.ModeClosed}

// Collector exports the counters of every tracked client on scrape.
type Collector struct {
	mu      sync.RWMutex
	sources map[string]Source

	mode              *prometheus.Desc
	connects          *prometheus.Desc
	reconnectCycles   *prometheus.Desc
	reconnectAttempts *prometheus.Desc
	reconnectFailures *prometheus.Desc
	framesIn          *prometheus.Desc
	bytesIn           *prometheus.Desc
	framesOut         *prometheus.Desc
	bytesOut          *prometheus.Desc
	sendErrors        *prometheus.Desc
	heartbeats        *prometheus.Desc
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	labels := []string{"client", "url"}
	desc := func(name, help string, extra ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "socket", name), help, append(labels, extra...), nil)
	}
	return &Collector{
		sources:           make(map[string]Source),
		mode:              desc("mode", "1 for the current lifecycle mode of the client.", "mode"),
		connects:          desc("connects_total", "Successful dials."),
		reconnectCycles:   desc("reconnect_cycles_total", "Reconnect cycles started."),
		reconnectAttempts: desc("reconnect_attempts_total", "Dial attempts made by the reconnect loop."),
		reconnectFailures: desc("reconnect_failures_total", "Failed dial attempts made by the reconnect loop."),
		framesIn:          desc("frames_received_total", "Inbound frames delivered to the handler."),
		bytesIn:           desc("bytes_received_total", "Inbound frame bytes delivered to the handler."),
		framesOut:         desc("frames_sent_total", "Outbound frames written, suffix included."),
		bytesOut:          desc("bytes_sent_total", "Outbound bytes written, suffix included."),
		sendErrors:        desc("send_errors_total", "Writes that failed on the transport."),
		heartbeats:        desc("heartbeats_total", "Heartbeats written."),
	}
}

// Track starts exporting src.
func (c *Collector) Track(src Source) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[src.ID()] = src
}

// Untrack stops exporting the client with the given id.
func (c *Collector) Untrack(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sources, id)
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.mode
	ch <- c.connects
	ch <- c.reconnectCycles
	ch <- c.reconnectAttempts
	ch <- c.reconnectFailures
	ch <- c.framesIn
	ch <- c.bytesIn
	ch <- c.framesOut
	ch <- c.bytesOut
	ch <- c.sendErrors
	ch <- c.heartbeats
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := make([]Source, 0, len(c.sources))
	for _, src := range c.sources {
		sources = append(sources, src)
	}
	c.mu.RUnlock()

	for _, src := range sources {
		id, url := src.ID(), src.URL()
		current := src.Mode()
		for _, m := range modes {
			v := 0.0
			if m == current {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.mode, prometheus.GaugeValue, v, id, url, m.String())
		}

		s := src.Stats()
		counter := func(desc *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), id, url)
		}
		counter(c.connects, s.Connects)
		counter(c.reconnectCycles, s.ReconnectCycles)
		counter(c.reconnectAttempts, s.ReconnectAttempts)
		counter(c.reconnectFailures, s.ReconnectFailures)
		counter(c.framesIn, s.FramesIn)
		counter(c.bytesIn, s.BytesIn)
		counter(c.framesOut, s.FramesOut)
		counter(c.bytesOut, s.BytesOut)
		counter(c.sendErrors, s.SendErrors)
		counter(c.heartbeats, s.Heartbeats)
	}
}
