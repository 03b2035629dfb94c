package statusrefresh

import (
	"fmt"
	"time"

	"interview-sync/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// ExpireStale also flips overdue invites to expired on every job.
	ExpireStale bool
}

func DefaultConfig() *Config {
	return &Config{Timeout: 30 * time.Second, ExpireStale: true}
}

// ConfigFrom builds the handler config from the worker section.
func ConfigFrom(wcfg config.WorkerConfig) *Config {
	cfg := DefaultConfig()
	if wcfg.Timeout > 0 {
		cfg.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
