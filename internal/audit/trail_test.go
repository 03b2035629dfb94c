package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"interview-sync/internal/common/logger"
	"interview-sync/internal/models"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertAuditLog(ctx context.Context, entry *models.InterviewAuditLog) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockStore) ListAuditLogs(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error) {
	args := m.Called(ctx, interviewID)
	events, _ := args.Get(0).([]models.InterviewAuditLog)
	return events, args.Error(1)
}

type MockMirror struct {
	mock.Mock
}

func (m *MockMirror) Index(ctx context.Context, event models.InterviewAuditLog) error {
	return m.Called(ctx, event).Error(0)
}

func TestRecord_AppendsThenMirrors(t *testing.T) {
	store := &MockStore{}
	mirror := &MockMirror{}
	trail := NewTrail(store, mirror, logger.NewTestLogger(t))

	store.On("InsertAuditLog", mock.Anything, mock.AnythingOfType("*models.InterviewAuditLog")).Return(nil)
	mirror.On("Index", mock.Anything, mock.MatchedBy(func(e models.InterviewAuditLog) bool {
		return e.EventType == models.AuditInviteRevoked && e.ID != ""
	})).Return(nil)

	event := &models.InterviewAuditLog{InterviewID: "iv-1", EventType: models.AuditInviteRevoked, Actor: "ats"}
	require.NoError(t, trail.Record(context.Background(), event))
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())
	store.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestRecord_StoreFailureSkipsMirror(t *testing.T) {
	store := &MockStore{}
	mirror := &MockMirror{}
	trail := NewTrail(store, mirror, logger.NewTestLogger(t))

	store.On("InsertAuditLog", mock.Anything, mock.Anything).Return(errors.New("db down"))

	err := trail.Record(context.Background(), &models.InterviewAuditLog{InterviewID: "iv-1", EventType: models.AuditSessionExpired})
	require.Error(t, err)
	mirror.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}

func TestPublished_MirrorFailureIsIgnored(t *testing.T) {
	mirror := &MockMirror{}
	trail := NewTrail(&MockStore{}, mirror, logger.NewTestLogger(t))

	mirror.On("Index", mock.Anything, mock.Anything).Return(errors.New("es unavailable"))

	assert.NotPanics(t, func() {
		trail.Published(context.Background(),
			models.InterviewAuditLog{ID: "a1", EventType: models.AuditInviteRedeemed},
			models.InterviewAuditLog{ID: "a2", EventType: models.AuditSessionCreated})
	})
	mirror.AssertNumberOfCalls(t, "Index", 2)
}

func TestList_EmptyIsNotNil(t *testing.T) {
	store := &MockStore{}
	trail := NewTrail(store, nil, logger.NewNoOpLogger())

	store.On("ListAuditLogs", mock.Anything, "iv-1").Return(nil, nil)

	events, err := trail.List(context.Background(), "iv-1")
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}

func TestElasticMirror_IndexesByEventID(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}))
	defer server.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)

	mirror := NewElasticMirror(client, "interview-audit")
	err = mirror.Index(context.Background(), models.InterviewAuditLog{
		ID: "audit-1", InterviewID: "iv-1", EventType: models.AuditInterviewCompleted,
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(gotPath, "/interview-audit/_doc/audit-1"))
	assert.Equal(t, "interview_completed", gotBody["eventType"])
}

func TestElasticMirror_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}, MaxRetries: 0, DisableRetry: true})
	require.NoError(t, err)

	err = NewElasticMirror(client, "interview-audit").Index(context.Background(), models.InterviewAuditLog{ID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
