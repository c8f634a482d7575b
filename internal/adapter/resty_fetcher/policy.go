package resty_fetcher

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy decides how many times a URL is tried and how long to wait in between.
type Policy struct {
	MaxAttempts  int // total attempts, including the first
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64 // randomization factor, 0.2 means +/- 20%
	// BlockedMultiplier stretches the delay after 403/405/429 or a challenge page.
	BlockedMultiplier float64
}

// DefaultPolicy is one try plus three retries, starting at ten seconds.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       4,
		InitialDelay:      10 * time.Second,
		MaxDelay:          time.Minute,
		Multiplier:        2,
		Jitter:            0.2,
		BlockedMultiplier: 2,
	}
}

func (p Policy) normalized() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier < 1 {
		p.Multiplier = 1
	}
	if p.BlockedMultiplier < 1 {
		p.BlockedMultiplier = 1
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

// schedule yields successive retry delays for one URL.
type schedule struct {
	policy Policy
	b      *backoff.ExponentialBackOff
}

func (p Policy) newSchedule() *schedule {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.InitialDelay,
		RandomizationFactor: p.Jitter,
		Multiplier:          p.Multiplier,
		MaxInterval:         p.MaxDelay,
		MaxElapsedTime:      0, // the attempt budget bounds retries, not wall time
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return &schedule{policy: p, b: b}
}

func (s *schedule) next(blocked bool) time.Duration {
	d := s.b.NextBackOff()
	if d < 0 {
		d = s.policy.MaxDelay
	}
	if blocked {
		d = time.Duration(float64(d) * s.policy.BlockedMultiplier)
	}
	return d
}
