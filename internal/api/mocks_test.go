package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"interview-sync/internal/invites"
	"interview-sync/internal/models"
	"interview-sync/internal/orchestrator"
	"interview-sync/internal/sessions"
	syncgw "interview-sync/internal/sync"
	"interview-sync/internal/webhooks"
)

type MockStore struct{ mock.Mock }

func (m *MockStore) GetGroupByAPIKeyHash(ctx context.Context, hash string) (*models.Group, error) {
	args := m.Called(ctx, hash)
	g, _ := args.Get(0).(*models.Group)
	return g, args.Error(1)
}

func (m *MockStore) UpsertJob(ctx context.Context, j *models.Job) error {
	return m.Called(ctx, j).Error(0)
}

func (m *MockStore) GetJobByExternalID(ctx context.Context, groupID, externalJobID string) (*models.Job, error) {
	args := m.Called(ctx, groupID, externalJobID)
	j, _ := args.Get(0).(*models.Job)
	return j, args.Error(1)
}

func (m *MockStore) SoftDeleteJob(ctx context.Context, groupID, externalJobID string) (bool, error) {
	args := m.Called(ctx, groupID, externalJobID)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) UpsertApplicant(ctx context.Context, a *models.Applicant) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockStore) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	args := m.Called(ctx, id)
	iv, _ := args.Get(0).(*models.Interview)
	return iv, args.Error(1)
}

func (m *MockStore) GetCurrentInvite(ctx context.Context, interviewID string) (*models.InterviewInvite, error) {
	args := m.Called(ctx, interviewID)
	inv, _ := args.Get(0).(*models.InterviewInvite)
	return inv, args.Error(1)
}

func (m *MockStore) CreateWebhookConfig(ctx context.Context, c *models.WebhookConfig) error {
	return m.Called(ctx, c).Error(0)
}

type MockGateway struct{ mock.Mock }

func (m *MockGateway) SyncGroup(ctx context.Context, t syncgw.Target) (*orchestrator.GroupUpsertResponse, error) {
	args := m.Called(ctx, t)
	r, _ := args.Get(0).(*orchestrator.GroupUpsertResponse)
	return r, args.Error(1)
}

func (m *MockGateway) SyncJob(ctx context.Context, t syncgw.Target, job *models.Job) (bool, error) {
	args := m.Called(ctx, t, job)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) SyncApplicant(ctx context.Context, t syncgw.Target, a *models.Applicant, externalJobID string) (bool, error) {
	args := m.Called(ctx, t, a, externalJobID)
	return args.Bool(0), args.Error(1)
}

func (m *MockGateway) DeleteJob(ctx context.Context, t syncgw.Target, externalJobID string) bool {
	return m.Called(ctx, t, externalJobID).Bool(0)
}

type MockLifecycle struct{ mock.Mock }

func (m *MockLifecycle) SendInterviewRequest(ctx context.Context, req invites.InterviewRequest) (*invites.Created, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*invites.Created)
	return r, args.Error(1)
}

func (m *MockLifecycle) RefreshInvite(ctx context.Context, interviewID, actor string) (*invites.Refreshed, error) {
	args := m.Called(ctx, interviewID, actor)
	r, _ := args.Get(0).(*invites.Refreshed)
	return r, args.Error(1)
}

func (m *MockLifecycle) RefreshStatusFromOrchestrator(ctx context.Context, interviewID string) (*invites.StatusRefresh, error) {
	args := m.Called(ctx, interviewID)
	r, _ := args.Get(0).(*invites.StatusRefresh)
	return r, args.Error(1)
}

func (m *MockLifecycle) RevokeInvite(ctx context.Context, interviewID, reason, actor string) (*models.InterviewInvite, error) {
	args := m.Called(ctx, interviewID, reason, actor)
	r, _ := args.Get(0).(*models.InterviewInvite)
	return r, args.Error(1)
}

func (m *MockLifecycle) RecordResponse(ctx context.Context, session *models.CandidateSession, payload map[string]interface{}) (bool, error) {
	args := m.Called(ctx, session, payload)
	return args.Bool(0), args.Error(1)
}

type MockSessions struct{ mock.Mock }

func (m *MockSessions) Redeem(ctx context.Context, shortCode string, client sessions.Client) (*sessions.Bundle, error) {
	args := m.Called(ctx, shortCode, client)
	b, _ := args.Get(0).(*sessions.Bundle)
	return b, args.Error(1)
}

func (m *MockSessions) Authenticate(ctx context.Context, token string) (*models.CandidateSession, error) {
	args := m.Called(ctx, token)
	cs, _ := args.Get(0).(*models.CandidateSession)
	return cs, args.Error(1)
}

type MockAudit struct{ mock.Mock }

func (m *MockAudit) List(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error) {
	args := m.Called(ctx, interviewID)
	r, _ := args.Get(0).([]models.InterviewAuditLog)
	return r, args.Error(1)
}

type MockOrphans struct{ mock.Mock }

func (m *MockOrphans) Summarize(ctx context.Context, groupID string, known []string) (*models.OrphanedEntitySummary, error) {
	args := m.Called(ctx, groupID, known)
	r, _ := args.Get(0).(*models.OrphanedEntitySummary)
	return r, args.Error(1)
}

type MockReceiver struct{ mock.Mock }

func (m *MockReceiver) Receive(ctx context.Context, in webhooks.Signed) (*webhooks.Receipt, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(*webhooks.Receipt)
	return r, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }
