package logger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewZapAdapter(zap.New(core)), logs
}

func TestMask(t *testing.T) {
	assert.Equal(t, "", Mask(""))
	assert.Equal(t, "****", Mask("short"))
	assert.Equal(t, "isk_****", Mask("isk_0123456789abcdef"))
}

func TestLogger_MasksSensitiveFields(t *testing.T) {
	log, logs := observed()

	log.Info("calling orchestrator", map[string]interface{}{
		"apiKey":      "abcd1234efgh5678",
		"signature":   []byte("raw"),
		"interviewId": "iv-1",
	})

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "abcd****", fields["apiKey"])
	assert.Equal(t, "****", fields["signature"])
	assert.Equal(t, "iv-1", fields["interviewId"])
}

func TestLogger_WithFieldsAndError(t *testing.T) {
	log, logs := observed()

	log.WithFields(map[string]interface{}{"groupId": "g-1"}).
		WithError(errors.New("boom")).
		Warn("sync failed", nil)

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	assert.Equal(t, "g-1", entry.ContextMap()["groupId"])
	assert.Equal(t, "boom", entry.ContextMap()["error"])
}

func TestNew_Levels(t *testing.T) {
	assert.True(t, New("debug", "console").Core().Enabled(zapcore.DebugLevel))
	assert.False(t, New("warn", "json").Core().Enabled(zapcore.InfoLevel))
	assert.True(t, New("unknown", "json").Core().Enabled(zapcore.InfoLevel))
}
