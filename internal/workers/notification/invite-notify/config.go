package invitenotify

import (
	"fmt"
	"time"

	"interview-sync/internal/common/config"
)

type Config struct {
	Timeout       time.Duration
	EmailEnabled  bool
	SMSEnabled    bool
	PublicBaseURL string
}

// ConfigFrom combines the worker section with the notification and invite
// settings.
func ConfigFrom(wcfg config.WorkerConfig, cfg *config.Config) *Config {
	c := &Config{
		Timeout:       30 * time.Second,
		EmailEnabled:  cfg.Notifications.Email.Enabled,
		SMSEnabled:    cfg.Notifications.SMS.Enabled,
		PublicBaseURL: cfg.Invites.PublicBaseURL,
	}
	if wcfg.Timeout > 0 {
		c.Timeout = time.Duration(wcfg.Timeout) * time.Millisecond
	}
	return c
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("invites.public_base_url is required")
	}
	return nil
}
