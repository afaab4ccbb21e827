// api/middleware/rate_limiter_test.go
package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	t.Run("Within Budget", func(t *testing.T) {
		for i := 0; i < rl.limit; i++ {
			assert.True(t, rl.Allow("10.0.0.1"), "request %d should pass", i)
		}
	})

	t.Run("Over Budget", func(t *testing.T) {
		assert.False(t, rl.Allow("10.0.0.1"))
	})

	t.Run("Budgets Are Per IP", func(t *testing.T) {
		assert.True(t, rl.Allow("10.0.0.2"))
	})
}
