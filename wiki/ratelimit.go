package wiki

import (
	"sync"
	"time"
)

// Limiter is a token-bucket rate limiter guarding upstream calls. Tokens refill
// at a fixed rate up to the bucket capacity; a call that finds the bucket empty
// is rejected rather than queued, so a burst of tool invocations degrades into
// UpstreamUnavailable failures instead of piling up goroutines.
type Limiter struct {
	mu       sync.Mutex
	capacity float64
	refill   float64 // tokens per second
	tokens   float64
	last     time.Time
}

// NewLimiter creates a limiter with the given burst capacity and refill rate
// in tokens per second. The bucket starts full.
func NewLimiter(capacity int, refillPerSec float64) *Limiter {
	return &Limiter{
		capacity: float64(capacity),
		refill:   refillPerSec,
		tokens:   float64(capacity),
		last:     time.Now(),
	}
}

// Allow consumes one token if available and reports whether the call may
// proceed.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.last).Seconds()
	l.last = now

	l.tokens += elapsed * l.refill
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// Tokens returns the current token count, for tests and introspection.
func (l *Limiter) Tokens() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	tokens := l.tokens + now.Sub(l.last).Seconds()*l.refill
	if tokens > l.capacity {
		tokens = l.capacity
	}
	return tokens
}
