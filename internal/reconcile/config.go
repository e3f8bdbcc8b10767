package reconcile

import "time"

// Config controls the reconciliation sweep loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	// GracePeriod is how long a PENDING booking may sit without an invoice
	// before it counts as orphaned. It keeps the sweep from racing the
	// booking-creation path's second write.
	GracePeriod time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    50,
		PollInterval: 30 * time.Second,
		GracePeriod:  5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = defaults.GracePeriod
	}
	return c
}
