package retry

import (
	"math"
	"math/rand"
	"time"
)

// Config defines exponential backoff parameters shared by the live retry
// path and the background replay path.
type Config struct {
	MaxAttempts  int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	JitterFactor float64
}

// DefaultConfig matches the engine-wide defaults; call sites may override.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		JitterFactor: 0.2,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = time.Minute
	}
	if c.JitterFactor < 0 {
		c.JitterFactor = 0
	}
	if c.JitterFactor > 1 {
		c.JitterFactor = 1
	}
	return c
}

// Delay returns the backoff before the next attempt (1-based): exponential
// growth clamped at MaxDelay, with symmetric jitter so concurrent devices
// do not retry in lockstep. Result is floored at zero.
func (c Config) Delay(attempt int) time.Duration {
	c = c.withDefaults()
	if attempt < 1 {
		attempt = 1
	}

	exp := float64(c.BaseDelay) * math.Pow(2, float64(attempt-1))
	clamped := math.Min(exp, float64(c.MaxDelay))
	jitter := clamped * c.JitterFactor * (rand.Float64()*2 - 1)

	d := time.Duration(clamped + jitter)
	if d < 0 {
		d = 0
	}
	return d
}
