package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalYAML = `
database:
  postgres:
    host: localhost
    database: interview_sync
    user: app
  redis:
    address: localhost:6379
orchestrator:
  base_url: http://orchestrator.local
  api_key: ${TEST_ORCH_KEY}
sessions:
  signing_secret: 0123456789abcdef0123456789abcdef
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Invites.DefaultMaxUses)
	assert.Equal(t, 72*time.Hour, cfg.Invites.TTL())
	assert.Equal(t, 300*time.Second, cfg.Webhooks.ReplayWindow())
	assert.Equal(t, "X-Webhook-Signature", cfg.Webhooks.SignatureHeader)
	assert.Equal(t, "X-Webhook-Timestamp", cfg.Webhooks.TimestampHeader)
	assert.Equal(t, 30*time.Second, cfg.Orchestrator.GetTimeout())
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "interview-sync", cfg.Sessions.Issuer)
	assert.False(t, cfg.Webhooks.RequireSignature)
	assert.False(t, cfg.Database.Elasticsearch.Enabled())
}

func TestLoadFromFile_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_ORCH_KEY", "orch-key-from-env")

	cfg, err := LoadFromFile(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "orch-key-from-env", cfg.Orchestrator.APIKey)
}

func TestLoadFromFile_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name: "missing orchestrator url",
			body: `
database:
  postgres: {host: localhost, database: d, user: u}
  redis: {address: localhost:6379}
sessions:
  signing_secret: 0123456789abcdef0123456789abcdef
`,
			wantErr: "orchestrator.base_url",
		},
		{
			name: "short signing secret",
			body: `
database:
  postgres: {host: localhost, database: d, user: u}
  redis: {address: localhost:6379}
orchestrator: {base_url: http://x}
sessions: {signing_secret: short}
`,
			wantErr: "signing_secret",
		},
		{
			name: "camunda enabled without broker",
			body: minimalYAML + `
camunda:
  enabled: true
`,
			wantErr: "camunda.broker_address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetWorkerConfig_Default(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"webhook-delivery-dispatch": {Enabled: false, MaxJobsActive: 1},
	}}

	assert.False(t, IsWorkerEnabled(cfg, "webhook-delivery-dispatch"))
	assert.True(t, IsWorkerEnabled(cfg, "unknown"))
	assert.Equal(t, 5, GetWorkerConfig(cfg, "unknown").MaxJobsActive)
}
