package db

import (
	"math"
	"time"
)

// Backoff computes exponential delays between connection attempts.
// The zero value is not useful; use DefaultBackoff or fill all fields.
type Backoff struct {
	// Initial is the delay after the first failed attempt.
	Initial time.Duration
	// Max caps the computed delay.
	Max time.Duration
	// Multiplier grows the delay per attempt.
	Multiplier float64
}

// DefaultBackoff returns the standard connection backoff:
// 1s initial, doubled per attempt, capped at 30s.
func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2.0,
	}
}

// Delay returns Initial * Multiplier^attempt capped at Max. Pure and total:
// large attempt values saturate at Max instead of overflowing.
func (b Backoff) Delay(attempt uint) time.Duration {
	if b.Initial <= 0 {
		return 0
	}
	if b.Max > 0 && b.Initial >= b.Max {
		return b.Max
	}

	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt))
	if b.Max > 0 && (d >= float64(b.Max) || math.IsInf(d, 1) || math.IsNaN(d)) {
		return b.Max
	}
	return time.Duration(d)
}
