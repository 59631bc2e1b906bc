package registry

import (
	"math/rand"
	"time"
)

const (
	backoffInitial    = 500 * time.Millisecond
	backoffMax        = 30 * time.Second
	backoffMultiplier = 2.0
)

// backoff implements truncated exponential backoff with jitter.
type backoff struct {
	ceiling time.Duration
	current time.Duration
}

func newBackoff(initial, ceiling time.Duration) *backoff {
	return &backoff{ceiling: ceiling, current: initial}
}

// next returns the current backoff duration and advances the internal state.
func (b *backoff) next() time.Duration {
	d := b.current
	// ±25% jitter.
	jitter := time.Duration(float64(b.current) * 0.25 * (rand.Float64()*2 - 1)) //nolint:gosec // not crypto
	d += jitter
	if d < 0 {
		d = 0
	}

	b.current = time.Duration(float64(b.current) * backoffMultiplier)
	if b.current > b.ceiling {
		b.current = b.ceiling
	}
	return d
}
