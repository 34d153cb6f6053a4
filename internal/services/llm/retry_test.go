package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	assert.False(t, IsRateLimitError(nil))
	assert.True(t, IsRateLimitError(errors.New("Error 429, Message: quota exceeded")))
	assert.True(t, IsRateLimitError(errors.New("RESOURCE_EXHAUSTED")))
	assert.True(t, IsRateLimitError(errors.New("rate limit reached")))
	assert.False(t, IsRateLimitError(errors.New("connection refused")))
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 45.38s., Status: RESOURCE_EXHAUSTED")
	assert.InDelta(t, 45.38, ExtractRetryDelay(err).Seconds(), 0.01)

	assert.Equal(t, time.Duration(0), ExtractRetryDelay(errors.New("no delay here")))
	assert.Equal(t, time.Duration(0), ExtractRetryDelay(nil))
}

func TestCalculateBackoffCapped(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	first := cfg.CalculateBackoff(0, 0)
	assert.Equal(t, cfg.InitialBackoff, first)

	// Repeated multiplication never exceeds the cap
	for attempt := 0; attempt < 10; attempt++ {
		assert.LessOrEqual(t, cfg.CalculateBackoff(attempt, 0), cfg.MaxBackoff)
	}
}

func TestCalculateBackoffUsesAPIDelay(t *testing.T) {
	cfg := NewDefaultRetryConfig()
	backoff := cfg.CalculateBackoff(0, 10*time.Second)
	assert.Equal(t, 11*time.Second, backoff)
}
