package webhooks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	commonhttp "interview-sync/internal/common/http"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/models"
	"interview-sync/internal/store/postgres"
)

type MockDeliveryStore struct {
	mock.Mock
}

func (m *MockDeliveryStore) ClaimDueDeliveries(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.DueDelivery, error) {
	args := m.Called(ctx, now, limit, lease)
	due, _ := args.Get(0).([]models.DueDelivery)
	return due, args.Error(1)
}

func (m *MockDeliveryStore) RecordDeliveryAttempt(ctx context.Context, a postgres.DeliveryAttempt) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockDeliveryStore) StampResultWebhook(ctx context.Context, interviewID string, sentAt time.Time, response string) error {
	return m.Called(ctx, interviewID, sentAt, response).Error(0)
}

func newTestDispatcher(t *testing.T, store DeliveryStore) *Dispatcher {
	return NewDispatcher(store, commonhttp.NewClient(2*time.Second), DispatcherConfig{
		MaxAttempts:    3,
		BaseBackoff:    30 * time.Second,
		MaxBackoff:     100 * time.Second,
		RequestTimeout: time.Second,
		Lease:          time.Minute,
	}, logger.NewTestLogger(t))
}

func dueItem(url string, attempts int) models.DueDelivery {
	return models.DueDelivery{
		Delivery: models.WebhookDelivery{
			ID: "d1", WebhookConfigID: "cfg-1", InterviewID: "iv-1",
			EventType: "interview.completed", Payload: []byte(`{"interviewId":"iv-1"}`),
			Status: models.DeliveryPending, Attempts: attempts,
		},
		Config: models.WebhookConfig{ID: "cfg-1", URL: url, Secret: "ats-secret"},
	}
}

func TestBackoff_DoublesAndCaps(t *testing.T) {
	d := newTestDispatcher(t, &MockDeliveryStore{})

	assert.Equal(t, 30*time.Second, d.Backoff(1))
	assert.Equal(t, 60*time.Second, d.Backoff(2))
	assert.Equal(t, 100*time.Second, d.Backoff(3))
	assert.Equal(t, 100*time.Second, d.Backoff(10))
}

func TestDispatchDue_DeliversSignedPayload(t *testing.T) {
	var gotSig, gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	now := time.Now().UTC()
	store := &MockDeliveryStore{}
	store.On("ClaimDueDeliveries", mock.Anything, now, 10, time.Minute).Return([]models.DueDelivery{dueItem(server.URL, 0)}, nil)
	store.On("StampResultWebhook", mock.Anything, "iv-1", now, "202 ok").Return(nil)
	store.On("RecordDeliveryAttempt", mock.Anything, mock.MatchedBy(func(a postgres.DeliveryAttempt) bool {
		return a.Status == models.DeliveryDelivered && a.Attempts == 1 && a.ResponseStatus == 202
	})).Return(nil)

	summary, err := newTestDispatcher(t, store).DispatchDue(context.Background(), now, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Delivered)
	assert.Equal(t, Sign("ats-secret", []byte(`{"interviewId":"iv-1"}`)), gotSig)
	assert.Equal(t, `{"interviewId":"iv-1"}`, gotBody)
	store.AssertExpectations(t)
}

func TestDispatchDue_SchedulesRetryOnFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	now := time.Now().UTC()
	store := &MockDeliveryStore{}
	store.On("ClaimDueDeliveries", mock.Anything, now, 5, time.Minute).Return([]models.DueDelivery{dueItem(server.URL, 1)}, nil)
	store.On("RecordDeliveryAttempt", mock.Anything, mock.MatchedBy(func(a postgres.DeliveryAttempt) bool {
		return a.Status == models.DeliveryRetrying && a.Attempts == 2 &&
			a.NextRetryAt != nil && a.NextRetryAt.Equal(now.Add(60*time.Second)) && a.ResponseStatus == 500
	})).Return(nil)

	summary, err := newTestDispatcher(t, store).DispatchDue(context.Background(), now, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retrying)
	store.AssertNotCalled(t, "StampResultWebhook", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatchDue_GivesUpAfterMaxAttempts(t *testing.T) {
	now := time.Now().UTC()
	store := &MockDeliveryStore{}
	store.On("ClaimDueDeliveries", mock.Anything, now, 5, time.Minute).
		Return([]models.DueDelivery{dueItem("http://127.0.0.1:1/unreachable", 2)}, nil)
	store.On("RecordDeliveryAttempt", mock.Anything, mock.MatchedBy(func(a postgres.DeliveryAttempt) bool {
		return a.Status == models.DeliveryFailed && a.Attempts == 3 && a.NextRetryAt == nil && a.LastError != ""
	})).Return(nil)

	summary, err := newTestDispatcher(t, store).DispatchDue(context.Background(), now, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
}

func TestDispatchDue_ClaimError(t *testing.T) {
	store := &MockDeliveryStore{}
	store.On("ClaimDueDeliveries", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := newTestDispatcher(t, store).DispatchDue(context.Background(), time.Now(), 5)
	require.Error(t, err)
}
