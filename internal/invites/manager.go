// Package invites owns the interview and invite state machine: creation,
// refresh, expiry, revocation and the writes driven by remote status.
package invites

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/credentials"
	"interview-sync/internal/models"
	"interview-sync/internal/orchestrator"
	"interview-sync/internal/store/postgres"
	syncgw "interview-sync/internal/sync"
)

// DeliveryEventCompleted is the event forwarded to group webhook configs.
const DeliveryEventCompleted = "interview.completed"

type Store interface {
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetJobByExternalID(ctx context.Context, groupID, externalJobID string) (*models.Job, error)
	GetApplicantByExternalID(ctx context.Context, groupID, externalApplicantID string) (*models.Applicant, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	CreateInterviewWithInvite(ctx context.Context, iv *models.Interview, inv *models.InterviewInvite, actor string) ([]models.InterviewAuditLog, error)
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	GetCurrentInvite(ctx context.Context, interviewID string) (*models.InterviewInvite, error)
	ReplaceInvite(ctx context.Context, r postgres.InviteReplacement) (*models.InterviewInvite, []models.InterviewAuditLog, error)
	RevokeActiveInvite(ctx context.Context, interviewID, reason, actor string, at time.Time) (*models.InterviewInvite, []models.InterviewAuditLog, error)
	UpdateInterviewStatus(ctx context.Context, id string, from, to models.InterviewStatus, now time.Time) (bool, error)
	ExpireStaleInvites(ctx context.Context, now time.Time) (int64, error)
	RecordResponse(ctx context.Context, r postgres.ResponseRecord) (bool, []models.InterviewAuditLog, error)
	ApplyWebhookUpdate(ctx context.Context, w postgres.WebhookApply) (*postgres.WebhookApplyResult, error)
}

// Gateway is the part of the sync gateway the lifecycle drives.
type Gateway interface {
	Options(t syncgw.Target, purpose credentials.Purpose, operation string) (orchestrator.CallOptions, bool, error)
	PushJob(ctx context.Context, opts orchestrator.CallOptions, job *models.Job) error
	PushApplicant(ctx context.Context, opts orchestrator.CallOptions, a *models.Applicant, externalJobID string) error
	CreateInterview(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.CreateInterviewRequest) (*orchestrator.CreateInterviewResponse, error)
	RefreshInvite(ctx context.Context, t syncgw.Target, orchestratorInterviewID string) (*orchestrator.InviteInfo, error)
	FetchInterviewStatus(ctx context.Context, t syncgw.Target, orchestratorInterviewID string) (*orchestrator.InterviewStatusResponse, bool, error)
}

type Auditor interface {
	Record(ctx context.Context, event *models.InterviewAuditLog) error
	Published(ctx context.Context, events ...models.InterviewAuditLog)
}

type Config struct {
	InviteTTL       time.Duration
	DefaultMaxUses  int
	ShortCodeLength int
	PublicBaseURL   string
}

type Manager struct {
	store   Store
	gateway Gateway
	audit   Auditor
	cache   *StatusCache
	config  Config
	logger  logger.Logger
	now     func() time.Time
}

func NewManager(store Store, gateway Gateway, audit Auditor, cache *StatusCache, cfg Config, log logger.Logger) *Manager {
	if cfg.DefaultMaxUses <= 0 {
		cfg.DefaultMaxUses = 3
	}
	if cfg.InviteTTL <= 0 {
		cfg.InviteTTL = 72 * time.Hour
	}
	return &Manager{
		store:   store,
		gateway: gateway,
		audit:   audit,
		cache:   cache,
		config:  cfg,
		logger:  log.WithFields(map[string]interface{}{"component": "invite_lifecycle"}),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// InterviewRequest is what the ATS sends to schedule an interview. Exactly one
// of GuideID and ConfigurationID must be set.
type InterviewRequest struct {
	GroupID             string
	ExternalApplicantID string
	// ExternalJobID defaults to the applicant's job.
	ExternalJobID   string
	AgentID         string
	GuideID         string
	ConfigurationID string
	OverrideKey     string
	Actor           string
}

func (r InterviewRequest) validate() error {
	switch {
	case r.GroupID == "":
		return apperrors.NewValidationError("groupId is required")
	case r.ExternalApplicantID == "":
		return apperrors.NewValidationError("externalApplicantId is required")
	case r.AgentID == "":
		return apperrors.NewValidationError("agentId is required")
	case (r.GuideID == "") == (r.ConfigurationID == ""):
		return apperrors.NewValidationError("exactly one of interviewGuideId and configurationId is required")
	}
	return nil
}

type Created struct {
	Interview *models.Interview
	Invite    *models.InterviewInvite
	Link      string
}

// SendInterviewRequest pushes the job and applicant, creates the interview
// remotely, then persists the interview with its first invite. Nothing is
// written locally unless every remote call succeeded, and failures are not
// retried.
func (m *Manager) SendInterviewRequest(ctx context.Context, req InterviewRequest) (*Created, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	group, err := m.store.GetGroup(ctx, req.GroupID)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.GetAgent(ctx, req.AgentID); err != nil {
		return nil, err
	}
	applicant, err := m.store.GetApplicantByExternalID(ctx, group.ID, req.ExternalApplicantID)
	if err != nil {
		return nil, err
	}
	job, err := m.resolveJob(ctx, group.ID, req.ExternalJobID, applicant)
	if err != nil {
		return nil, err
	}

	target := syncgw.Target{Group: group, OverrideKey: req.OverrideKey}
	opts, _, err := m.gateway.Options(target, credentials.PurposeWrite, "create_interview")
	if err != nil {
		return nil, err
	}

	if err := m.gateway.PushJob(ctx, opts, job); err != nil {
		return nil, err
	}
	if err := m.gateway.PushApplicant(ctx, opts, applicant, job.ExternalJobID); err != nil {
		return nil, err
	}
	resp, err := m.gateway.CreateInterview(ctx, opts, orchestrator.CreateInterviewRequest{
		ExternalJobID:       job.ExternalJobID,
		ExternalApplicantID: applicant.ExternalApplicantID,
		AgentID:             req.AgentID,
		GuideID:             req.GuideID,
		ConfigurationID:     req.ConfigurationID,
	})
	if err != nil {
		m.logger.Warn("remote interview creation failed", map[string]interface{}{
			"groupId":             group.ID,
			"externalApplicantId": applicant.ExternalApplicantID,
			"error":               err.Error(),
		})
		return nil, err
	}

	now := m.now()
	iv := &models.Interview{
		GroupID:                 group.ID,
		JobID:                   job.ID,
		ApplicantID:             applicant.ID,
		AgentID:                 req.AgentID,
		GuideID:                 optional(req.GuideID),
		ConfigurationID:         optional(req.ConfigurationID),
		Status:                  models.InterviewPending,
		Token:                   resp.Token,
		OrchestratorInterviewID: resp.InterviewID,
		ScheduledAt:             &now,
	}
	inv, err := m.inviteFrom(resp.Invite, now)
	if err != nil {
		return nil, err
	}

	events, err := m.store.CreateInterviewWithInvite(ctx, iv, inv, actorOr(req.Actor, "ats"))
	if err != nil {
		return nil, err
	}
	m.audit.Published(ctx, events...)

	m.logger.Info("interview created", map[string]interface{}{
		"interviewId":             iv.ID,
		"orchestratorInterviewId": iv.OrchestratorInterviewID,
		"inviteId":                inv.ID,
	})
	return &Created{Interview: iv, Invite: inv, Link: inv.Link(m.config.PublicBaseURL)}, nil
}

func (m *Manager) resolveJob(ctx context.Context, groupID, externalJobID string, applicant *models.Applicant) (*models.Job, error) {
	if externalJobID != "" {
		return m.store.GetJobByExternalID(ctx, groupID, externalJobID)
	}
	return m.store.GetJob(ctx, applicant.JobID)
}

// inviteFrom adopts the remote invite when one was returned and otherwise
// issues a local short code.
func (m *Manager) inviteFrom(info *orchestrator.InviteInfo, now time.Time) (*models.InterviewInvite, error) {
	inv := &models.InterviewInvite{
		Status:    models.InviteActive,
		ExpiresAt: now.Add(m.config.InviteTTL),
		MaxUses:   m.config.DefaultMaxUses,
	}
	if info != nil && info.ShortCode != "" {
		inv.ShortCode = info.ShortCode
		if !info.ExpiresAt.IsZero() {
			inv.ExpiresAt = info.ExpiresAt.UTC()
		}
		if info.MaxUses > 0 {
			inv.MaxUses = info.MaxUses
		}
		inv.UseCount = info.UseCount
		return inv, nil
	}
	code, err := NewShortCode(m.config.ShortCodeLength)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	inv.ShortCode = code
	return inv, nil
}

type Refreshed struct {
	Invite  *models.InterviewInvite
	Revoked *models.InterviewInvite
	Link    string
}

// RefreshInvite asks the orchestrator to reissue the invite, then revokes the
// local active invite and installs the new one. The interview goes back to
// pending.
func (m *Manager) RefreshInvite(ctx context.Context, interviewID, actor string) (*Refreshed, error) {
	iv, err := m.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if iv.OrchestratorInterviewID == "" {
		return nil, apperrors.NewNoLinkedInterviewError(iv.ID)
	}
	if _, err := m.store.GetCurrentInvite(ctx, iv.ID); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("interview %s has no invite to refresh", iv.ID))
		}
		return nil, err
	}
	group, err := m.store.GetGroup(ctx, iv.GroupID)
	if err != nil {
		return nil, err
	}

	info, err := m.gateway.RefreshInvite(ctx, syncgw.Target{Group: group}, iv.OrchestratorInterviewID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	next, err := m.inviteFrom(info, now)
	if err != nil {
		return nil, err
	}
	revoked, events, err := m.store.ReplaceInvite(ctx, postgres.InviteReplacement{
		InterviewID: iv.ID,
		Next:        next,
		Reason:      "refreshed",
		Actor:       actorOr(actor, "ats"),
		At:          now,
	})
	if err != nil {
		return nil, err
	}
	m.audit.Published(ctx, events...)
	m.invalidate(ctx, iv.OrchestratorInterviewID)

	return &Refreshed{Invite: next, Revoked: revoked, Link: next.Link(m.config.PublicBaseURL)}, nil
}

type StatusRefresh struct {
	Interview *models.Interview
	Previous  models.InterviewStatus
	Changed   bool
}

// MapRemoteStatus derives the local status from a remote poll. Anything it
// does not recognise leaves current unchanged.
func MapRemoteStatus(current models.InterviewStatus, resp *orchestrator.InterviewStatusResponse) models.InterviewStatus {
	if resp == nil {
		return current
	}
	switch resp.Status {
	case orchestrator.RemoteStatusCompleted:
		return models.InterviewCompleted
	case orchestrator.RemoteStatusInProgress:
		return models.InterviewInProgress
	}
	switch resp.InviteStatus() {
	case orchestrator.RemoteInviteMaxUsesReached, orchestrator.RemoteInviteExpired, orchestrator.RemoteInviteRevoked:
		return models.InterviewExpired
	}
	return current
}

// RefreshStatusFromOrchestrator polls the remote interview and writes the
// mapped status when it differs. Terminal and unlinked interviews are left
// alone. Remote failures are logged, not returned.
func (m *Manager) RefreshStatusFromOrchestrator(ctx context.Context, interviewID string) (*StatusRefresh, error) {
	iv, err := m.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	result := &StatusRefresh{Interview: iv, Previous: iv.Status}
	if iv.Status.IsTerminal() || iv.OrchestratorInterviewID == "" {
		return result, nil
	}

	resp, ok := m.remoteStatus(ctx, iv)
	if !ok {
		return result, nil
	}

	next := MapRemoteStatus(iv.Status, resp)
	if next == iv.Status {
		return result, nil
	}

	now := m.now()
	updated, err := m.store.UpdateInterviewStatus(ctx, iv.ID, iv.Status, next, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// someone else moved it first
		return result, nil
	}
	iv.Status = next
	iv.UpdatedAt = now
	result.Changed = true

	event := models.AuditInterviewStarted
	if next.IsTerminal() {
		event = models.AuditInterviewCompleted
	}
	if err := m.audit.Record(ctx, &models.InterviewAuditLog{
		InterviewID: iv.ID,
		EventType:   event,
		Actor:       "orchestrator_poll",
		Payload: map[string]interface{}{
			"from":         string(result.Previous),
			"to":           string(next),
			"remoteStatus": resp.Status,
			"inviteStatus": resp.InviteStatus(),
		},
		CreatedAt: now,
	}); err != nil {
		m.logger.Warn("status audit not recorded", map[string]interface{}{"interviewId": iv.ID, "error": err.Error()})
	}
	return result, nil
}

func (m *Manager) remoteStatus(ctx context.Context, iv *models.Interview) (*orchestrator.InterviewStatusResponse, bool) {
	log := m.logger.WithFields(map[string]interface{}{
		"interviewId":             iv.ID,
		"orchestratorInterviewId": iv.OrchestratorInterviewID,
	})

	cached, hit, err := m.cache.Get(ctx, iv.OrchestratorInterviewID)
	if err != nil {
		log.Warn("status cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if hit {
		return cached, true
	}

	group, err := m.store.GetGroup(ctx, iv.GroupID)
	if err != nil {
		log.Warn("group lookup failed, skipping status poll", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	resp, attempted, err := m.gateway.FetchInterviewStatus(ctx, syncgw.Target{Group: group}, iv.OrchestratorInterviewID)
	if err != nil {
		log.Warn("status poll failed", map[string]interface{}{"error": err.Error()})
		return nil, false
	}
	if !attempted || resp == nil {
		return nil, false
	}
	if err := m.cache.Set(ctx, iv.OrchestratorInterviewID, resp); err != nil {
		log.Warn("status cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return resp, true
}

// RevokeInvite revokes the interview's active invite and its sessions.
func (m *Manager) RevokeInvite(ctx context.Context, interviewID, reason, actor string) (*models.InterviewInvite, error) {
	if reason == "" {
		reason = "revoked"
	}
	revoked, events, err := m.store.RevokeActiveInvite(ctx, interviewID, reason, actorOr(actor, "ats"), m.now())
	if err != nil {
		return nil, err
	}
	m.audit.Published(ctx, events...)
	return revoked, nil
}

func (m *Manager) ExpireStaleInvites(ctx context.Context) (int64, error) {
	n, err := m.store.ExpireStaleInvites(ctx, m.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		m.logger.Info("expired stale invites", map[string]interface{}{"count": n})
	}
	return n, nil
}

// RecordResponse records one candidate turn. It reports whether this was the
// turn that started the interview.
func (m *Manager) RecordResponse(ctx context.Context, session *models.CandidateSession, payload map[string]interface{}) (bool, error) {
	started, events, err := m.store.RecordResponse(ctx, postgres.ResponseRecord{
		InterviewID: session.InterviewID,
		InviteID:    session.InviteID,
		SessionID:   session.ID,
		Payload:     payload,
		At:          m.now(),
	})
	if err != nil {
		return false, err
	}
	m.audit.Published(ctx, events...)
	return started, nil
}

// UpdateFromWebhook stores an authenticated callback as-is. It bypasses the
// polling map and reports whether the stored outcome changed.
func (m *Manager) UpdateFromWebhook(ctx context.Context, iv *models.Interview, outcome models.Outcome, transcriptURL string) (bool, error) {
	now := m.now()
	apply := postgres.WebhookApply{
		InterviewID:   iv.ID,
		Outcome:       outcome,
		TranscriptURL: transcriptURL,
		ReceivedAt:    now,
		Actor:         "orchestrator_webhook",
	}
	if outcome.Status == models.InterviewCompleted {
		payload, err := deliveryPayload(iv, outcome, transcriptURL, now)
		if err != nil {
			return false, apperrors.NewInternalError(err)
		}
		apply.DeliveryEvent = DeliveryEventCompleted
		apply.DeliveryPayload = payload
	}

	result, err := m.store.ApplyWebhookUpdate(ctx, apply)
	if err != nil {
		return false, err
	}
	m.audit.Published(ctx, result.Events...)
	if result.Changed {
		m.invalidate(ctx, iv.OrchestratorInterviewID)
		m.logger.Info("interview updated from webhook", map[string]interface{}{
			"interviewId": iv.ID,
			"status":      string(outcome.Status),
			"deliveries":  result.Deliveries,
		})
	}
	return result.Changed, nil
}

func deliveryPayload(iv *models.Interview, o models.Outcome, transcriptURL string, at time.Time) ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"event":                   DeliveryEventCompleted,
		"interviewId":             iv.ID,
		"orchestratorInterviewId": iv.OrchestratorInterviewID,
		"jobId":                   iv.JobID,
		"applicantId":             iv.ApplicantID,
		"status":                  o.Status,
		"score":                   o.Score,
		"summary":                 o.Summary,
		"recommendation":          o.Recommendation,
		"strengths":               o.Strengths,
		"areasForImprovement":     o.AreasForImprovement,
		"transcriptUrl":           transcriptURL,
		"occurredAt":              at,
	})
}

func (m *Manager) invalidate(ctx context.Context, orchestratorID string) {
	if err := m.cache.Invalidate(ctx, orchestratorID); err != nil {
		m.logger.Warn("status cache invalidation failed", map[string]interface{}{
			"orchestratorInterviewId": orchestratorID,
			"error":                   err.Error(),
		})
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func actorOr(actor, fallback string) string {
	if actor == "" {
		return fallback
	}
	return actor
}
