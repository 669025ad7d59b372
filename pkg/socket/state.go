package socket

import (
	"context"
	"sync/atomic"
	"time"

	"hftnet/pkg/exception"

	"github.com/yanun0323/logs"
)

// awaitPollInterval is how often Await re-reads the mode.
const awaitPollInterval = 10 * time.Millisecond

// State is the shared connection mode.
//
// Reads never block. Writes are compare-and-set, so a conflicting transition
// is detected instead of overwritten.
type State struct {
	mode    atomic.Uint32
	changed chan struct{}
}

// NewState creates a state starting at mode.
func NewState(mode Mode) *State {
	s := &State{changed: make(chan struct{}, 1)}
	s.mode.Store(uint32(mode))
	return s
}

// Load returns the current mode.
func (s *State) Load() Mode {
	return Mode(s.mode.Load())
}

// Changed is signalled after every successful transition.
// It has a single consumer.
func (s *State) Changed() <-chan struct{} {
	return s.changed
}

// CompareAndSwap moves from -> to only if the mode is still from.
func (s *State) CompareAndSwap(from, to Mode) bool {
	if !canTransition(from, to) {
		return false
	}
	if !s.mode.CompareAndSwap(uint32(from), uint32(to)) {
		return false
	}
	s.notify()
	return true
}

// Transition moves to the given mode from whatever the current mode is.
// Rejected transitions are logged and reported as false, never as errors.
func (s *State) Transition(to Mode) bool {
	for {
		from := s.Load()
		if !canTransition(from, to) {
			logs.Warnf("socket: ignore transition %s -> %s", from, to)
			return false
		}
		if s.mode.CompareAndSwap(uint32(from), uint32(to)) {
			s.notify()
			return true
		}
	}
}

// Await blocks until the mode equals target.
// It returns exception.ErrSocketClosed if the state closes first.
func (s *State) Await(ctx context.Context, target Mode) error {
	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()
	for {
		mode := s.Load()
		if mode == target {
			return nil
		}
		if mode == ModeClosed {
			return exception.ErrSocketClosed
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *State) notify() {
	select {
	case s.changed <- struct{}{}:
	default:
	}
}

// canTransition encodes the lifecycle: everything moves toward Closed except
// the Reconnecting -> Active cycle, and Closed is final.
func canTransition(from, to Mode) bool {
	if from == to || from == ModeClosed {
		return false
	}
	switch to {
	case ModeActive:
		return from == ModeReconnecting
	case ModeReconnecting:
		return from == ModeActive
	case ModeDisconnecting:
		return from == ModeActive || from == ModeReconnecting
	case ModeClosed:
		return true
	default:
		return false
	}
}
