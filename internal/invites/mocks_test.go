package invites

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"interview-sync/internal/credentials"
	"interview-sync/internal/models"
	"interview-sync/internal/orchestrator"
	"interview-sync/internal/store/postgres"
	syncgw "interview-sync/internal/sync"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	args := m.Called(ctx, id)
	g, _ := args.Get(0).(*models.Group)
	return g, args.Error(1)
}

func (m *MockStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	args := m.Called(ctx, id)
	j, _ := args.Get(0).(*models.Job)
	return j, args.Error(1)
}

func (m *MockStore) GetJobByExternalID(ctx context.Context, groupID, externalJobID string) (*models.Job, error) {
	args := m.Called(ctx, groupID, externalJobID)
	j, _ := args.Get(0).(*models.Job)
	return j, args.Error(1)
}

func (m *MockStore) GetApplicantByExternalID(ctx context.Context, groupID, externalApplicantID string) (*models.Applicant, error) {
	args := m.Called(ctx, groupID, externalApplicantID)
	a, _ := args.Get(0).(*models.Applicant)
	return a, args.Error(1)
}

func (m *MockStore) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Agent)
	return a, args.Error(1)
}

func (m *MockStore) CreateInterviewWithInvite(ctx context.Context, iv *models.Interview, inv *models.InterviewInvite, actor string) ([]models.InterviewAuditLog, error) {
	args := m.Called(ctx, iv, inv, actor)
	events, _ := args.Get(0).([]models.InterviewAuditLog)
	return events, args.Error(1)
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

func (m *MockStore) ReplaceInvite(ctx context.Context, r postgres.InviteReplacement) (*models.InterviewInvite, []models.InterviewAuditLog, error) {
	args := m.Called(ctx, r)
	inv, _ := args.Get(0).(*models.InterviewInvite)
	events, _ := args.Get(1).([]models.InterviewAuditLog)
	return inv, events, args.Error(2)
}

func (m *MockStore) RevokeActiveInvite(ctx context.Context, interviewID, reason, actor string, at time.Time) (*models.InterviewInvite, []models.InterviewAuditLog, error) {
	args := m.Called(ctx, interviewID, reason, actor, at)
	inv, _ := args.Get(0).(*models.InterviewInvite)
	events, _ := args.Get(1).([]models.InterviewAuditLog)
	return inv, events, args.Error(2)
}

func (m *MockStore) UpdateInterviewStatus(ctx context.Context, id string, from, to models.InterviewStatus, now time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, now)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ExpireStaleInvites(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) RecordResponse(ctx context.Context, r postgres.ResponseRecord) (bool, []models.InterviewAuditLog, error) {
	args := m.Called(ctx, r)
	events, _ := args.Get(1).([]models.InterviewAuditLog)
	return args.Bool(0), events, args.Error(2)
}

func (m *MockStore) ApplyWebhookUpdate(ctx context.Context, w postgres.WebhookApply) (*postgres.WebhookApplyResult, error) {
	args := m.Called(ctx, w)
	res, _ := args.Get(0).(*postgres.WebhookApplyResult)
	return res, args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Options(t syncgw.Target, purpose credentials.Purpose, operation string) (orchestrator.CallOptions, bool, error) {
	args := m.Called(t, purpose, operation)
	return args.Get(0).(orchestrator.CallOptions), args.Bool(1), args.Error(2)
}

func (m *MockGateway) PushJob(ctx context.Context, opts orchestrator.CallOptions, job *models.Job) error {
	return m.Called(ctx, opts, job).Error(0)
}

func (m *MockGateway) PushApplicant(ctx context.Context, opts orchestrator.CallOptions, a *models.Applicant, externalJobID string) error {
	return m.Called(ctx, opts, a, externalJobID).Error(0)
}

func (m *MockGateway) CreateInterview(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.CreateInterviewRequest) (*orchestrator.CreateInterviewResponse, error) {
	args := m.Called(ctx, opts, req)
	resp, _ := args.Get(0).(*orchestrator.CreateInterviewResponse)
	return resp, args.Error(1)
}

func (m *MockGateway) RefreshInvite(ctx context.Context, t syncgw.Target, orchestratorInterviewID string) (*orchestrator.InviteInfo, error) {
	args := m.Called(ctx, t, orchestratorInterviewID)
	info, _ := args.Get(0).(*orchestrator.InviteInfo)
	return info, args.Error(1)
}

func (m *MockGateway) FetchInterviewStatus(ctx context.Context, t syncgw.Target, orchestratorInterviewID string) (*orchestrator.InterviewStatusResponse, bool, error) {
	args := m.Called(ctx, t, orchestratorInterviewID)
	resp, _ := args.Get(0).(*orchestrator.InterviewStatusResponse)
	return resp, args.Bool(1), args.Error(2)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) Record(ctx context.Context, event *models.InterviewAuditLog) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockAuditor) Published(ctx context.Context, events ...models.InterviewAuditLog) {
	m.Called(ctx, events)
}
