package socket

import "sync/atomic"

// Stats collects client counters. All methods are safe on a nil receiver.
type Stats struct {
	connects          uint64
	reconnectCycles   uint64
	reconnectAttempts uint64
	reconnectFailures uint64
	framesIn          uint64
	bytesIn           uint64
	framesOut         uint64
	bytesOut          uint64
	sendErrors        uint64
	heartbeats        uint64
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	Connects          uint64
	ReconnectCycles   uint64
	ReconnectAttempts uint64
	ReconnectFailures uint64
	FramesIn          uint64
	BytesIn           uint64
	FramesOut         uint64
	BytesOut          uint64
	SendErrors        uint64
	Heartbeats        uint64
}

func (s *Stats) incConnect() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.connects, 1)
}

func (s *Stats) incReconnectCycle() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.reconnectCycles, 1)
}

func (s *Stats) incReconnectAttempt(failed bool) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.reconnectAttempts, 1)
	if failed {
		atomic.AddUint64(&s.reconnectFailures, 1)
	}
}

func (s *Stats) observeIn(n int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.framesIn, 1)
	atomic.AddUint64(&s.bytesIn, uint64(n))
}

func (s *Stats) observeOut(n int) {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.framesOut, 1)
	atomic.AddUint64(&s.bytesOut, uint64(n))
}

func (s *Stats) incSendError() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.sendErrors, 1)
}

func (s *Stats) incHeartbeat() {
	if s == nil {
		return
	}
	atomic.AddUint64(&s.heartbeats, 1)
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	if s == nil {
		return StatsSnapshot{}
	}
	return StatsSnapshot{
		Connects:          atomic.LoadUint64(&s.connects),
		ReconnectCycles:   atomic.LoadUint64(&s.reconnectCycles),
		ReconnectAttempts: atomic.LoadUint64(&s.reconnectAttempts),
		ReconnectFailures: atomic.LoadUint64(&s.reconnectFailures),
		FramesIn:          atomic.LoadUint64(&s.framesIn),
		BytesIn:           atomic.LoadUint64(&s.bytesIn),
		FramesOut:         atomic.LoadUint64(&s.framesOut),
		BytesOut:          atomic.LoadUint64(&s.bytesOut),
		SendErrors:        atomic.LoadUint64(&s.sendErrors),
		Heartbeats:        atomic.LoadUint64(&s.heartbeats),
	}
}
