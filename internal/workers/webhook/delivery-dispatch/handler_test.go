package deliverydispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"interview-sync/internal/common/config"
	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/webhooks"
)

type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) DispatchDue(ctx context.Context, now time.Time, limit int) (*webhooks.DispatchSummary, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webhooks.DispatchSummary), args.Error(1)
}

var testNow = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func newHandler(t *testing.T, d Dispatcher) *Handler {
	h := NewHandler(ConfigFrom(config.WorkerConfig{}), d, logger.NewTestLogger(t))
	h.now = func() time.Time { return testNow }
	return h
}

func TestHandler_Limit(t *testing.T) {
	h := newHandler(t, new(MockDispatcher))
	assert.Equal(t, 50, h.limit(0))
	assert.Equal(t, 10, h.limit(10))
	assert.Equal(t, maxLimit, h.limit(10_000))
}

func TestHandler_Execute(t *testing.T) {
	d := new(MockDispatcher)
	d.On("DispatchDue", mock.Anything, testNow, 20).
		Return(&webhooks.DispatchSummary{Claimed: 4, Delivered: 2, Retrying: 1, Failed: 1}, nil)

	out, err := newHandler(t, d).execute(context.Background(), &Input{Limit: 20})

	require.NoError(t, err)
	assert.Equal(t, &Output{Claimed: 4, Delivered: 2, Retrying: 1, Failed: 1}, out)
	d.AssertExpectations(t)
}

func TestHandler_Execute_StoreError(t *testing.T) {
	d := new(MockDispatcher)
	d.On("DispatchDue", mock.Anything, testNow, 50).
		Return(nil, apperrors.NewDatabaseError("claim_due_deliveries", errors.New("conn reset")))

	_, err := newHandler(t, d).execute(context.Background(), &Input{})

	assert.Equal(t, apperrors.ErrCodeDatabaseError, apperrors.CodeOf(err))
}
