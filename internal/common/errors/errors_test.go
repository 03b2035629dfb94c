package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_MapsCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want ErrorKind
	}{
		{ErrCodeOrchestratorConnectionFailed, KindConnection},
		{ErrCodeOrchestratorKeyNotConfigured, KindConnection},
		{ErrCodeOrchestratorAPIError, KindAPI},
		{ErrCodeResourceNotFound, KindNotFound},
		{ErrCodeInviteNotFound, KindNotFound},
		{ErrCodeNoLinkedInterview, KindValidation},
		{ErrCodeInviteExhausted, KindConflict},
		{ErrCodeSessionExpired, KindUnauthorized},
		{ErrCodeDatabaseError, KindInternal},
		{ErrorCode("SOMETHING_NEW"), KindInternal},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.code))
		})
	}
}

func TestSentinels_WorkWithErrorsIs(t *testing.T) {
	err := fmt.Errorf("redeem: %w", NewInviteExpiredError("abc", time.Now()))

	assert.True(t, stderrors.Is(err, ErrInviteExpired))
	assert.False(t, stderrors.Is(err, ErrInviteExhausted))
	assert.Equal(t, ErrCodeInviteExpired, CodeOf(err))
	assert.Equal(t, ErrorCode(""), CodeOf(stderrors.New("plain")))
}

func TestNewAPIError_CarriesStatusAndBody(t *testing.T) {
	err := NewAPIError("create_interview", 422, `{"error":"bad"}`)

	assert.True(t, IsAPI(err))
	assert.Equal(t, 422, StatusCode(err))
	assert.Equal(t, `{"error":"bad"}`, err.Metadata["body"])
	assert.Equal(t, 0, StatusCode(NewValidationError("x")))
}

func TestNewConnectionError_Unwraps(t *testing.T) {
	cause := stderrors.New("dial tcp: refused")
	err := NewConnectionError("get_interview", cause)

	assert.True(t, IsConnection(err))
	assert.True(t, err.Retryable)
	assert.ErrorIs(t, err, cause)
}

func TestConvertToBPMNError_RetryLimit(t *testing.T) {
	db := ConvertToBPMNError(NewDatabaseError("op", stderrors.New("x")))
	assert.Equal(t, 3, db.Retries)

	notFound := ConvertToBPMNError(NewResourceNotFoundError("Interview", "id"))
	assert.Equal(t, 0, notFound.Retries)

	vars := notFound.ToErrorVariables()
	require.Contains(t, vars, "errorKind")
	assert.Equal(t, "not_found", vars["errorKind"])
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "ORCHESTRATOR", GetErrorCategory(ErrCodeOrchestratorAPIError))
	assert.Equal(t, "INVITE", GetErrorCategory(ErrCodeInviteRevoked))
	assert.Equal(t, "STORAGE", GetErrorCategory(ErrCodeCacheError))
	assert.Equal(t, "DELIVERY", GetErrorCategory(ErrCodeWebhookDeliveryFailed))
	assert.Equal(t, "UNKNOWN", GetErrorCategory(ErrCodeInternal))
}
