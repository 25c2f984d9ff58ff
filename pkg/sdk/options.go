package sdk

import "time"

// SupportedSchemaMajor is the server schema major version this client speaks.
const SupportedSchemaMajor = "1"

type options struct {
	timeout      time.Duration
	maxAttempts  int
	initialDelay time.Duration
}

// Audits clone repositories and call a model three times per criterion, so
// the default timeout is generous.
func defaultOptions() options {
	return options{
		timeout:      10 * time.Minute,
		maxAttempts:  2,
		initialDelay: 500 * time.Millisecond,
	}
}

// Option configures the SDK client.
type Option func(*options)

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetry configures retry behaviour. One attempt disables retries.
func WithRetry(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		if maxAttempts < 1 {
			maxAttempts = 1
		}
		o.maxAttempts = maxAttempts
		o.initialDelay = initialDelay
	}
}
