package httpx

import (
	"math/rand"
	"sync"
	"time"
)

// backoff computes exponentially growing retry delays with symmetric jitter.
type backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func newBackoff(p RetryPolicy) *backoff {
	jitter := p.Jitter
	if jitter < 0 {
		jitter = 0
	}
	if jitter > 1 {
		jitter = 1
	}
	return &backoff{
		base:   p.BaseDelay,
		max:    p.MaxDelay,
		jitter: jitter,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// delay returns the wait before retry number attempt (0-indexed).
func (b *backoff) delay(attempt int) time.Duration {
	d := b.base
	for i := 0; i < attempt && d < b.max; i++ {
		d *= 2
	}
	if d > b.max {
		d = b.max
	}
	if b.jitter == 0 || d <= 0 {
		return d
	}

	b.mu.Lock()
	factor := 1 + (b.rnd.Float64()*2-1)*b.jitter
	b.mu.Unlock()
	return time.Duration(float64(d) * factor)
}
