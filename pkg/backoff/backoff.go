package backoff

import (
	"math"
	"math/rand/v2"
	"time"

	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

const (
	DefaultInitial = 2 * time.Second
	DefaultMax     = 30 * time.Second
	DefaultFactor  = 1.5
	DefaultJitter  = 100 * time.Millisecond
)

// Strategy defines reconnect backoff behavior.
type Strategy struct {
	// Initial is the delay after the first failure.
	Initial time.Duration
	// Max caps the exponential part of the delay.
	Max time.Duration
	// Factor multiplies the delay for each consecutive failure.
	Factor float64
	// Jitter is the upper bound of the random delay added on top.
	Jitter time.Duration
}

// State tracks consecutive failures for a single reconnect loop.
type State struct {
	Failures int
	Current  time.Duration
}

// DefaultStrategy returns the stock reconnect settings.
func DefaultStrategy() Strategy {
	return Strategy{
		Initial: DefaultInitial,
		Max:     DefaultMax,
		Factor:  DefaultFactor,
		Jitter:  DefaultJitter,
	}
}

// Validate reports whether the strategy can produce bounded delays.
func (s Strategy) Validate() error {
	switch {
	case s.Initial <= 0:
		return errors.Wrapf(exception.ErrInvalidBackoff, "initial delay must be positive, got %s", s.Initial)
	case s.Max < s.Initial:
		return errors.Wrapf(exception.ErrInvalidBackoff, "max delay %s is below initial delay %s", s.Max, s.Initial)
	case s.Factor < 1 || math.IsNaN(s.Factor) || math.IsInf(s.Factor, 0):
		return errors.Wrapf(exception.ErrInvalidBackoff, "factor must be >= 1, got %v", s.Factor)
	case s.Jitter < 0:
		return errors.Wrapf(exception.ErrInvalidBackoff, "jitter must not be negative, got %s", s.Jitter)
	}
	return nil
}

// Base returns the delay for the given number of consecutive failures without jitter.
func (s Strategy) Base(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	initial := s.Initial
	if initial <= 0 {
		initial = DefaultInitial
	}
	max := s.Max
	if max < initial {
		max = initial
	}
	factor := s.Factor
	if factor < 1 || math.IsNaN(factor) {
		factor = 1
	}

	wait := float64(initial) * math.Pow(factor, float64(failures))
	if math.IsInf(wait, 0) || wait >= float64(max) {
		return max
	}
	return time.Duration(wait)
}

// Delay returns min(Max, Initial*Factor^failures) plus a jitter in [0, Jitter).
func (s Strategy) Delay(failures int) time.Duration {
	wait := s.Base(failures)
	if s.Jitter <= 0 {
		return wait
	}
	return wait + time.Duration(rand.Int64N(int64(s.Jitter)))
}

// Next computes the delay for the current failure count and advances the state.
func (s Strategy) Next(state *State) time.Duration {
	wait := s.Delay(state.Failures)
	state.Current = wait
	state.Failures++
	return wait
}

// Reset clears the failure count after a successful connection.
func (s Strategy) Reset(state *State) {
	state.Failures = 0
	state.Current = s.Base(0)
}
