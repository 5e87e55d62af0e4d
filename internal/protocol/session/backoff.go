package session

import (
	"math"
	"math/rand"
	"time"
)

// NextBackoffDelay returns the delay before connect attempt+1, where attempt
// is the 1-based number of attempts already made. With jitter the delay is
// scaled by a factor in [0.5, 1.5); a nil rng uses 0.5.
func NextBackoffDelay(cfg BackoffConfig, attempt int, rng *rand.Rand) time.Duration {
	if attempt <= 1 || cfg.InitialDelay <= 0 {
		return max(cfg.InitialDelay, 0)
	}
	mult := math.Max(cfg.Multiplier, 1.0)
	delay := float64(cfg.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if cfg.MaxDelay > 0 {
		delay = math.Min(delay, float64(cfg.MaxDelay))
	}
	if !cfg.Jitter {
		return time.Duration(delay)
	}
	factor := 0.5
	if rng != nil {
		factor += rng.Float64()
	}
	return time.Duration(delay * factor)
}

// RetryAllowed reports whether another connect attempt may follow attempt.
// A zero MaxConnectAttempts never gives up.
func (c Config) RetryAllowed(attempt int) bool {
	return c.MaxConnectAttempts <= 0 || attempt < c.MaxConnectAttempts
}
