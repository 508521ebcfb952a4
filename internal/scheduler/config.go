package scheduler

import "time"

// Default timings.
const (
	DefaultMaxRetries      = 3
	DefaultResponseTimeout = 500 * time.Millisecond
	DefaultRetryBackoff    = 200 * time.Millisecond
	DefaultMaxRetryBackoff = 2 * time.Second
	DefaultPollQuantum     = 50 * time.Millisecond
	DefaultRequestPause    = time.Second

	// backoffFactor grows the retry delay after each failure.
	backoffFactor = 1.5
)

// Config holds scheduler timing and retry settings.
type Config struct {
	// MaxRetries is how many times a failed request is re-sent.
	// Total sends per turn are at most 1 + MaxRetries.
	MaxRetries int

	// ResponseTimeout bounds the wait for one response.
	ResponseTimeout time.Duration

	// RetryBackoff is the delay before the first retry.
	RetryBackoff time.Duration

	// MaxRetryBackoff caps the growing retry delay.
	MaxRetryBackoff time.Duration

	// PollQuantum bounds how long one Tick may block in a receive.
	PollQuantum time.Duration

	// RequestPause is the minimum gap between new requests. Zero disables pacing.
	RequestPause time.Duration
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxRetries:      DefaultMaxRetries,
		ResponseTimeout: DefaultResponseTimeout,
		RetryBackoff:    DefaultRetryBackoff,
		MaxRetryBackoff: DefaultMaxRetryBackoff,
		PollQuantum:     DefaultPollQuantum,
		RequestPause:    DefaultRequestPause,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
	if c.PollQuantum <= 0 {
		c.PollQuantum = DefaultPollQuantum
	}
	if c.RetryBackoff < 0 {
		c.RetryBackoff = 0
	}
	if c.MaxRetryBackoff < c.RetryBackoff {
		c.MaxRetryBackoff = c.RetryBackoff
	}
	if c.RequestPause < 0 {
		c.RequestPause = 0
	}
	return c
}
