package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/danmuck/igtlctl/internal/protocol/frame"
)

var (
	ErrInvalidTimeout  = errors.New("session: timeout must be positive")
	ErrInvalidInterval = errors.New("session: send interval must be positive")
	ErrInvalidChunk    = errors.New("session: receive chunk must be positive")
	ErrInvalidBackoff  = errors.New("session: invalid backoff")
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines link timing and buffering.
type Config struct {
	ConnectTimeout time.Duration
	// ReadPoll bounds each receive call so the receive loop can observe
	// cancellation between reads.
	ReadPoll     time.Duration
	WriteTimeout time.Duration
	SendInterval time.Duration
	ReceiveChunk int
	MaxBodyBytes uint64
	Backoff      BackoffConfig
	// MaxConnectAttempts caps ConnectWithRetry; zero retries until the
	// context is done.
	MaxConnectAttempts int
	VerifyChecksum     bool
}

// DefaultConfig returns the link defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout: 5 * time.Second,
		ReadPoll:       100 * time.Millisecond,
		WriteTimeout:   2 * time.Second,
		SendInterval:   20 * time.Millisecond,
		ReceiveChunk:   64 * 1024,
		MaxBodyBytes:   frame.DefaultLimits().MaxBodyBytes,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills zero fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.ReadPoll <= 0 {
		c.ReadPoll = d.ReadPoll
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.SendInterval <= 0 {
		c.SendInterval = d.SendInterval
	}
	if c.ReceiveChunk <= 0 {
		c.ReceiveChunk = d.ReceiveChunk
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = d.MaxBodyBytes
	}
	if c.Backoff == (BackoffConfig{}) {
		c.Backoff = d.Backoff
	}
	return c
}

// Limits returns the frame limits implied by c.
func (c Config) Limits() frame.Limits {
	return frame.Limits{MaxBodyBytes: c.MaxBodyBytes}
}

// Validate rejects explicitly invalid settings. Zero values are treated as
// unset and should be filled with WithDefaults first.
func (c Config) Validate() error {
	if c.ConnectTimeout < 0 || c.ReadPoll < 0 || c.WriteTimeout < 0 {
		return ErrInvalidTimeout
	}
	if c.SendInterval < 0 {
		return ErrInvalidInterval
	}
	if c.ReceiveChunk < 0 {
		return ErrInvalidChunk
	}
	if c.Backoff.InitialDelay < 0 || c.Backoff.MaxDelay < 0 {
		return fmt.Errorf("%w: negative delay", ErrInvalidBackoff)
	}
	if c.Backoff.Multiplier != 0 && c.Backoff.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier %.2f < 1", ErrInvalidBackoff, c.Backoff.Multiplier)
	}
	return nil
}
