package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow("c1"), "attempt %d should pass", i)
	}
	assert.False(t, rl.Allow("c1"), "attempt past the limit should block")

	// Other connections track independently.
	assert.True(t, rl.Allow("c2"))
}

func TestRateLimiter_WindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 20*time.Millisecond)

	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))

	time.Sleep(30 * time.Millisecond)
	assert.True(t, rl.Allow("c1"))
}

func TestRateLimiter_Forget(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)

	assert.True(t, rl.Allow("c1"))
	rl.Forget("c1")
	assert.True(t, rl.Allow("c1"))
}
