package ratelimit

import (
	"math"
	"time"

	"hftnet/pkg/exception"

	"github.com/yanun0323/errors"
)

// Quota is a refill rate with a maximum burst capacity.
type Quota struct {
	// Rate is the number of units refilled per second.
	Rate float64
	// Burst is the bucket capacity.
	Burst int
}

// PerSecond allows n units per second with a burst of n.
func PerSecond(n int) Quota {
	return Quota{Rate: float64(n), Burst: n}
}

// PerMinute allows n units per minute with a burst of n.
func PerMinute(n int) Quota {
	return Quota{Rate: float64(n) / 60, Burst: n}
}

// Every allows one unit per interval.
func Every(interval time.Duration) Quota {
	if interval <= 0 {
		return Quota{}
	}
	return Quota{Rate: float64(time.Second) / float64(interval), Burst: 1}
}

// WithBurst returns a copy of the quota with a different burst size.
func (q Quota) WithBurst(burst int) Quota {
	q.Burst = burst
	return q
}

// Interval returns the time needed to refill one unit.
func (q Quota) Interval() time.Duration {
	if q.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / q.Rate)
}

// Validate reports whether the quota admits any traffic.
func (q Quota) Validate() error {
	if q.Rate <= 0 || math.IsNaN(q.Rate) || math.IsInf(q.Rate, 0) {
		return errors.Wrapf(exception.ErrInvalidQuota, "rate must be positive, got %v", q.Rate)
	}
	if q.Burst <= 0 {
		return errors.Wrapf(exception.ErrInvalidQuota, "burst must be positive, got %d", q.Burst)
	}
	return nil
}
