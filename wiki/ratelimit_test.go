package wiki_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mlziade/librarian/wiki"
)

func Test_Limiter_Burst(t *testing.T) {
	l := wiki.NewLimiter(3, 0.0001)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow(), "bucket exhausted")
	assert.False(t, l.Allow(), "rejection does not queue")
}

func Test_Limiter_Refill(t *testing.T) {
	l := wiki.NewLimiter(1, 100)

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	time.Sleep(50 * time.Millisecond)
	assert.True(t, l.Allow(), "tokens refill over time")
}

func Test_Limiter_CapacityCap(t *testing.T) {
	l := wiki.NewLimiter(2, 1000)
	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, l.Tokens(), 2.0, "refill never exceeds capacity")
}
