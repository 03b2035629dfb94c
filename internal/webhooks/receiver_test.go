package webhooks

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/models"
)

type MockLookup struct {
	mock.Mock
}

func (m *MockLookup) GetInterviewByOrchestratorID(ctx context.Context, id string) (*models.Interview, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interview), args.Error(1)
}

func (m *MockLookup) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

type MockApplier struct {
	mock.Mock
}

func (m *MockApplier) UpdateFromWebhook(ctx context.Context, iv *models.Interview, outcome models.Outcome, transcriptURL string) (bool, error) {
	args := m.Called(ctx, iv, outcome, transcriptURL)
	return args.Bool(0), args.Error(1)
}

const completedBody = `{"orchestratorInterviewId":"orch-1","status":"completed","score":8.5,"summary":"strong","strengths":["clarity"]}`

func newTestReceiver(t *testing.T, defaultSecret string, requireSecret bool) (*Receiver, *MockLookup, *MockApplier) {
	lookup := &MockLookup{}
	applier := &MockApplier{}
	v := NewVerifier(300*time.Second, requireSecret)
	return NewReceiver(v, defaultSecret, lookup, applier, logger.NewTestLogger(t)), lookup, applier
}

func knownInterview(lookup *MockLookup, groupSecret string) *models.Interview {
	iv := &models.Interview{ID: "iv-1", GroupID: "grp-1", Status: models.InterviewInProgress}
	lookup.On("GetInterviewByOrchestratorID", mock.Anything, "orch-1").Return(iv, nil)
	lookup.On("GetGroup", mock.Anything, "grp-1").Return(&models.Group{ID: "grp-1", WebhookSecret: groupSecret}, nil)
	return iv
}

func TestReceive_GroupSecretSignedCallbackIsApplied(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "default-secret", false)
	iv := knownInterview(lookup, "group-secret")

	applier.On("UpdateFromWebhook", mock.Anything, iv, mock.MatchedBy(func(o models.Outcome) bool {
		return o.Status == models.InterviewCompleted && *o.Score == 8.5 && o.Summary == "strong"
	}), "").Return(true, nil)

	body := []byte(completedBody)
	receipt, err := r.Receive(context.Background(), Signed{
		Body:      body,
		Signature: Sign("group-secret", body),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
	})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.True(t, receipt.Changed)
	assert.Equal(t, "iv-1", receipt.InterviewID)
	applier.AssertExpectations(t)
}

func TestReceive_DefaultSecretUsedWhenGroupHasNone(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "default-secret", false)
	knownInterview(lookup, "")
	applier.On("UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, "").Return(false, nil)

	body := []byte(completedBody)
	receipt, err := r.Receive(context.Background(), Signed{Body: body, Signature: Sign("default-secret", body)})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.False(t, receipt.Changed)
}

func TestReceive_BadSignatureRejectedWithoutMutation(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", false)
	knownInterview(lookup, "group-secret")

	body := []byte(completedBody)
	receipt, err := r.Receive(context.Background(), Signed{Body: body, Signature: Sign("wrong", body)})
	require.NoError(t, err)
	assert.False(t, receipt.Accepted)
	assert.Equal(t, ReasonMismatch, receipt.Reason)
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_ReplayedTimestampRejected(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", false)
	knownInterview(lookup, "group-secret")

	body := []byte(completedBody)
	receipt, err := r.Receive(context.Background(), Signed{
		Body:      body,
		Signature: Sign("group-secret", body),
		Timestamp: strconv.FormatInt(time.Now().Add(-301*time.Second).Unix(), 10),
	})
	require.NoError(t, err)
	assert.False(t, receipt.Accepted)
	assert.Equal(t, ReasonReplayed, receipt.Reason)
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_UnsignedAcceptedWhenNoSecretAnywhere(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", false)
	knownInterview(lookup, "")
	applier.On("UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, "").Return(true, nil)

	receipt, err := r.Receive(context.Background(), Signed{Body: []byte(completedBody)})
	require.NoError(t, err)
	assert.True(t, receipt.Accepted)
	assert.Equal(t, ReasonUnsigned, receipt.Reason)
}

func TestReceive_UnsignedRejectedWhenSignatureRequired(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", true)
	knownInterview(lookup, "")

	receipt, err := r.Receive(context.Background(), Signed{Body: []byte(completedBody)})
	require.NoError(t, err)
	assert.False(t, receipt.Accepted)
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_SchemaViolationIsValidationError(t *testing.T) {
	r, lookup, _ := newTestReceiver(t, "", false)
	knownInterview(lookup, "")

	_, err := r.Receive(context.Background(), Signed{Body: []byte(`{"orchestratorInterviewId":"orch-1","status":"finished"}`)})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestReceive_UnknownInterview(t *testing.T) {
	r, lookup, _ := newTestReceiver(t, "", false)
	lookup.On("GetInterviewByOrchestratorID", mock.Anything, "orch-1").
		Return(nil, apperrors.NewResourceNotFoundError("Interview", "orch-1"))

	_, err := r.Receive(context.Background(), Signed{Body: []byte(completedBody)})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestReceive_GroupLookupFailureRejectsUnsignedCallback(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", false)
	iv := &models.Interview{ID: "iv-1", GroupID: "grp-1", Status: models.InterviewInProgress}
	lookup.On("GetInterviewByOrchestratorID", mock.Anything, "orch-1").Return(iv, nil)
	lookup.On("GetGroup", mock.Anything, "grp-1").Return(nil, errors.New("db: connection reset"))

	receipt, err := r.Receive(context.Background(), Signed{Body: []byte(completedBody)})
	require.Error(t, err)
	assert.Nil(t, receipt)
	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "connection reset")
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_GroupLookupFailureIgnoresDefaultSecret(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "default-secret", false)
	iv := &models.Interview{ID: "iv-1", GroupID: "grp-1", Status: models.InterviewInProgress}
	lookup.On("GetInterviewByOrchestratorID", mock.Anything, "orch-1").Return(iv, nil)
	lookup.On("GetGroup", mock.Anything, "grp-1").Return(nil, errors.New("db: connection reset"))

	body := []byte(completedBody)
	_, err := r.Receive(context.Background(), Signed{Body: body, Signature: Sign("default-secret", body)})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(err))
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReceive_InterviewLookupFailureIsNotReportedAsUnknown(t *testing.T) {
	r, lookup, applier := newTestReceiver(t, "", false)
	lookup.On("GetInterviewByOrchestratorID", mock.Anything, "orch-1").
		Return(nil, apperrors.NewDatabaseError("get_interview_by_orchestrator_id", errors.New("db: timeout")))

	receipt, err := r.Receive(context.Background(), Signed{Body: []byte(completedBody)})
	require.Error(t, err)
	assert.Nil(t, receipt)
	assert.False(t, apperrors.IsNotFound(err))
	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(err))
	lookup.AssertNotCalled(t, "GetGroup", mock.Anything, mock.Anything)
	applier.AssertNotCalled(t, "UpdateFromWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
