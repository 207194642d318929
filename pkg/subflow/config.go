package subflow

import "github.com/dukex/subflow/pkg/recursion"

const (
	// DefaultTimeout is how long a job-mode call waits for its run, in seconds.
	DefaultTimeout = 300
	// DefaultPollInterval is the wait between two status checks, in milliseconds.
	DefaultPollInterval = 1000
)

// Config tunes the coordinator.
type Config struct {
	MaxDepth            int
	DefaultTimeout      int // seconds
	DefaultPollInterval int // milliseconds
}

func DefaultConfig() Config {
	return Config{
		MaxDepth:            recursion.DefaultMaxDepth,
		DefaultTimeout:      DefaultTimeout,
		DefaultPollInterval: DefaultPollInterval,
	}
}

func (c Config) timeout(requested int) int {
	if requested > 0 {
		return requested
	}

	if c.DefaultTimeout > 0 {
		return c.DefaultTimeout
	}

	return DefaultTimeout
}

func (c Config) pollInterval(requested int) int {
	if requested > 0 {
		return requested
	}

	if c.DefaultPollInterval > 0 {
		return c.DefaultPollInterval
	}

	return DefaultPollInterval
}
