package config

import (
	"fmt"
	"time"
)

type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Orchestrator  OrchestratorConfig      `mapstructure:"orchestrator"`
	Invites       InviteConfig            `mapstructure:"invites"`
	Sessions      SessionConfig           `mapstructure:"sessions"`
	Webhooks      WebhookConfig           `mapstructure:"webhooks"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int `mapstructure:"write_timeout"` // milliseconds
	// RedeemRateLimit is requests per second per client IP on the redemption endpoint.
	RedeemRateLimit float64 `mapstructure:"redeem_rate_limit"`
	RedeemBurst     int     `mapstructure:"redeem_burst"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the postgres:// form used by the migration driver.
func (p PostgresConfig) GetURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// ElasticsearchConfig configures the optional audit mirror. Empty addresses disable it.
type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	AuditIndex string   `mapstructure:"audit_index"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

func (e ElasticsearchConfig) Enabled() bool {
	return e.GetURL() != ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// OrchestratorConfig points at the counterpart tenant.
type OrchestratorConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// APIKey is the process-wide fallback used when a group has no key of its own.
	APIKey          string `mapstructure:"api_key"`
	BootstrapSecret string `mapstructure:"bootstrap_secret"`
	Timeout         int    `mapstructure:"timeout"`          // milliseconds
	StatusCacheTTL  int    `mapstructure:"status_cache_ttl"` // seconds
}

func (o OrchestratorConfig) GetTimeout() time.Duration {
	return GetDuration(o.Timeout)
}

type InviteConfig struct {
	DefaultMaxUses  int    `mapstructure:"default_max_uses"`
	TTLHours        int    `mapstructure:"ttl_hours"`
	PublicBaseURL   string `mapstructure:"public_base_url"`
	ShortCodeLength int    `mapstructure:"short_code_length"`
}

func (i InviteConfig) TTL() time.Duration {
	return time.Duration(i.TTLHours) * time.Hour
}

type SessionConfig struct {
	SigningSecret string `mapstructure:"signing_secret"`
	Issuer        string `mapstructure:"issuer"`
	TTLMinutes    int    `mapstructure:"ttl_minutes"`
}

func (s SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLMinutes) * time.Minute
}

type WebhookConfig struct {
	Secret              string `mapstructure:"secret"`
	ReplayWindowSeconds int    `mapstructure:"replay_window_seconds"`
	// RequireSignature rejects callbacks when no secret is configured instead of trusting them.
	RequireSignature bool   `mapstructure:"require_signature"`
	SignatureHeader  string `mapstructure:"signature_header"`
	TimestampHeader  string `mapstructure:"timestamp_header"`
	Delivery         struct {
		MaxAttempts    int `mapstructure:"max_attempts"`
		BaseBackoff    int `mapstructure:"base_backoff"` // seconds
		MaxBackoff     int `mapstructure:"max_backoff"`  // seconds
		RequestTimeout int `mapstructure:"request_timeout"`
	} `mapstructure:"delivery"`
}

func (w WebhookConfig) ReplayWindow() time.Duration {
	return time.Duration(w.ReplayWindowSeconds) * time.Second
}

type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
