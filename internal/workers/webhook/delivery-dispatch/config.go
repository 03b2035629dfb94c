package deliverydispatch

import (
	"time"

	"interview-sync/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// BatchSize applies when the job does not set a limit.
	BatchSize int
}

func ConfigFrom(wcfg config.WorkerConfig) *Config {
	c := &Config{Timeout: 2 * time.Minute, BatchSize: 50}
	if wcfg.Timeout > 0 {
		c.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return c
}
