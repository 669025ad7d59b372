package socket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSend struct {
	mu    sync.Mutex
	sent  [][]byte
	err   error
	calls int
}

func (r *recordSend) send(_ context.Context, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, append([]byte(nil), payload...))
	return nil
}

func (r *recordSend) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func TestHeartbeatBeatOnlyWhenActive(t *testing.T) {
	state := NewState(ModeActive)
	rec := &recordSend{}
	stats := &Stats{}
	hb := &heartbeat{interval: time.Second, payload: []byte("ping"), state: state, send: rec.send, stats: stats}

	assert.True(t, hb.beat())
	require.True(t, state.Transition(ModeReconnecting))
	assert.False(t, hb.beat())
	require.True(t, state.Transition(ModeDisconnecting))
	assert.False(t, hb.beat())

	assert.Equal(t, 1, rec.count())
	assert.Equal(t, uint64(1), stats.Snapshot().Heartbeats)
}

func TestHeartbeatSendErrorNotCounted(t *testing.T) {
	rec := &recordSend{err: errors.New("broken pipe")}
	stats := &Stats{}
	hb := &heartbeat{interval: time.Second, payload: []byte("ping"), state: NewState(ModeActive), send: rec.send, stats: stats}

	assert.False(t, hb.beat())
	assert.Equal(t, 1, rec.calls)
	assert.Zero(t, stats.Snapshot().Heartbeats)
}

func TestHeartbeatRunStops(t *testing.T) {
	rec := &recordSend{}
	hb := &heartbeat{interval: 10 * time.Millisecond, payload: []byte("ping"), state: NewState(ModeActive), send: rec.send}

	stop := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		hb.run(stop)
		close(exited)
	}()

	require.Eventually(t, func() bool { return rec.count() >= 3 }, time.Second, 5*time.Millisecond)
	close(stop)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop")
	}
}
