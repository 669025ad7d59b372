package socket

import (
	"context"
	"time"

	"github.com/yanun0323/logs"
)

// heartbeat writes a fixed payload on every tick while the client is active.
// Ticks in any other mode are skipped; the ticker itself keeps running until stop.
type heartbeat struct {
	interval time.Duration
	payload  []byte
	state    *State
	send     func(ctx context.Context, payload []byte) error
	stats    *Stats
}

func (h *heartbeat) run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.beat()
		}
	}
}

func (h *heartbeat) beat() bool {
	if h.state.Load() != ModeActive {
		return false
	}
	if err := h.send(context.Background(), h.payload); err != nil {
		logs.Debugf("socket: heartbeat skipped, err: %+v", err)
		return false
	}
	h.stats.incHeartbeat()
	return true
}
