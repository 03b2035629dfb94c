package credentials

import (
	"errors"
	"testing"

	apperrors "interview-sync/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_PriorityOrder(t *testing.T) {
	all := Sources{
		Override:        "override-key",
		EntityKey:       "group-key",
		FallbackKey:     "process-key",
		BootstrapSecret: "bootstrap",
	}

	tests := []struct {
		name       string
		purpose    Purpose
		sources    Sources
		wantOK     bool
		wantValue  string
		wantHeader string
		wantSource Source
	}{
		{"override wins", PurposeWrite, all, true, "override-key", HeaderAPIKey, SourceOverride},
		{"entity before fallback", PurposeWrite, Sources{EntityKey: "group-key", FallbackKey: "process-key"}, true, "group-key", HeaderAPIKey, SourceEntity},
		{"fallback when entity missing", PurposeRead, Sources{FallbackKey: "process-key"}, true, "process-key", HeaderAPIKey, SourceFallback},
		{"bootstrap ignored outside bootstrap", PurposeWrite, Sources{BootstrapSecret: "bootstrap"}, false, "", "", ""},
		{"bootstrap secret for group sync", PurposeBootstrap, Sources{BootstrapSecret: "bootstrap"}, true, "bootstrap", HeaderBootstrapSecret, SourceBootstrap},
		{"resolved key beats bootstrap secret", PurposeBootstrap, Sources{FallbackKey: "process-key", BootstrapSecret: "bootstrap"}, true, "process-key", HeaderAPIKey, SourceFallback},
		{"nothing configured", PurposeRead, Sources{}, false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, ok := Resolve(tt.purpose, tt.sources)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantValue, cred.Value)
			assert.Equal(t, tt.wantHeader, cred.Header)
			assert.Equal(t, tt.wantSource, cred.Source)
		})
	}
}

func TestRequire_MissingKeyIsConnectionKind(t *testing.T) {
	_, err := Require(PurposeWrite, Sources{}, "create_interview")
	require.Error(t, err)

	assert.True(t, errors.Is(err, apperrors.ErrKeyNotConfigured))
	assert.True(t, apperrors.IsConnection(err))
}

func TestRequire_Resolved(t *testing.T) {
	cred, err := Require(PurposeWrite, Sources{EntityKey: "k"}, "sync_applicant")
	require.NoError(t, err)
	assert.Equal(t, "k", cred.Value)
}

func TestPurpose_Required(t *testing.T) {
	assert.False(t, PurposeRead.Required())
	assert.False(t, PurposeBestEffort.Required())
	assert.True(t, PurposeWrite.Required())
	assert.True(t, PurposeBootstrap.Required())
}
