package orphanssummarize

import (
	"time"

	"interview-sync/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func ConfigFrom(wcfg config.WorkerConfig) *Config {
	c := &Config{Timeout: 30 * time.Second}
	if wcfg.Timeout > 0 {
		c.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return c
}
