// Package sessions redeems invites into signed candidate sessions and
// authenticates the tokens they produce.
package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/models"
	"interview-sync/internal/store/postgres"
)

type Store interface {
	GetInviteByShortCode(ctx context.Context, shortCode string) (*models.InterviewInvite, error)
	RedeemInvite(ctx context.Context, r postgres.Redemption) (*postgres.RedemptionResult, error)
	MarkInviteExpired(ctx context.Context, inviteID string, at time.Time) (bool, error)
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	ListGuideQuestions(ctx context.Context, guideID string) ([]models.GuideQuestion, error)
	GetSessionByJTI(ctx context.Context, jti string) (*models.CandidateSession, error)
	ExpireSession(ctx context.Context, cs *models.CandidateSession, at time.Time) ([]models.InterviewAuditLog, error)
}

type Auditor interface {
	Published(ctx context.Context, events ...models.InterviewAuditLog)
}

type Manager struct {
	store  Store
	tokens *TokenIssuer
	audit  Auditor
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

func NewManager(store Store, tokens *TokenIssuer, audit Auditor, ttl time.Duration, log logger.Logger) *Manager {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Manager{
		store:  store,
		tokens: tokens,
		audit:  audit,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "candidate_sessions"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Client describes the device redeeming the invite.
type Client struct {
	IPAddress string
	UserAgent string
}

// Bundle is everything the candidate UI needs to render the interview.
type Bundle struct {
	SessionToken string                 `json:"sessionToken"`
	ExpiresAt    time.Time              `json:"expiresAt"`
	Interview    *models.Interview      `json:"interview"`
	Agent        *models.Agent          `json:"agent"`
	Job          *models.Job            `json:"job"`
	Applicant    *models.Applicant      `json:"applicant"`
	Questions    []models.GuideQuestion `json:"questions"`
}

// Classify explains why inv cannot be redeemed at now, or returns nil when it
// can. Revocation wins over expiry, and expiry wins over exhaustion.
func Classify(shortCode string, inv *models.InterviewInvite, now time.Time) error {
	switch {
	case inv == nil:
		return apperrors.NewInviteNotFoundError(shortCode)
	case inv.Status == models.InviteRevoked:
		return apperrors.NewInviteRevokedError(shortCode)
	case inv.Status == models.InviteExpired || inv.IsExpiredAt(now):
		return apperrors.NewInviteExpiredError(shortCode, inv.ExpiresAt)
	case inv.Status == models.InviteConsumed || inv.UseCount >= inv.MaxUses:
		return apperrors.NewInviteExhaustedError(shortCode, inv.MaxUses)
	}
	return nil
}

func redemptionOutcome(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrCodeInviteNotFound:
		return "not_found"
	case apperrors.ErrCodeInviteRevoked:
		return "revoked"
	case apperrors.ErrCodeInviteExpired:
		return "expired"
	case apperrors.ErrCodeInviteExhausted:
		return "exhausted"
	}
	return "error"
}

// Redeem claims one use of the invite and issues the session that replaces
// any earlier one for the same invite. The bundle and token are prepared
// before the claim, so a failure there leaves the invite's use count intact.
func (m *Manager) Redeem(ctx context.Context, shortCode string, client Client) (*Bundle, error) {
	if shortCode == "" {
		return nil, apperrors.NewValidationError("shortCode is required")
	}

	now := m.now()
	inv, err := m.store.GetInviteByShortCode(ctx, shortCode)
	if err != nil && !apperrors.IsNotFound(err) {
		metrics.InviteRedemptions.WithLabelValues("error").Inc()
		return nil, err
	}
	if cause := Classify(shortCode, inv, now); cause != nil {
		return nil, m.refuse(ctx, shortCode, inv, now, cause)
	}

	session := &models.CandidateSession{
		JTI:       uuid.New().String(),
		ExpiresAt: now.Add(m.ttl),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	bundle, err := m.loadBundle(ctx, inv.InterviewID)
	if err != nil {
		metrics.InviteRedemptions.WithLabelValues("error").Inc()
		return nil, err
	}
	token, err := m.tokens.Issue(session.JTI, inv.InterviewID, inv.ID, now, session.ExpiresAt)
	if err != nil {
		metrics.InviteRedemptions.WithLabelValues("error").Inc()
		return nil, apperrors.NewInternalError(err)
	}

	result, err := m.store.RedeemInvite(ctx, postgres.Redemption{ShortCode: shortCode, Now: now, Session: session})
	if err != nil {
		metrics.InviteRedemptions.WithLabelValues("error").Inc()
		return nil, err
	}
	if !result.Redeemed {
		cause := Classify(shortCode, result.Invite, now)
		if cause == nil {
			cause = apperrors.NewInternalError(errors.New("invite was claimable but not redeemed"))
		}
		return nil, m.refuse(ctx, shortCode, result.Invite, now, cause)
	}

	metrics.InviteRedemptions.WithLabelValues("redeemed").Inc()
	m.audit.Published(ctx, result.Events...)

	bundle.SessionToken = token
	bundle.ExpiresAt = result.Session.ExpiresAt

	m.logger.Info("invite redeemed", map[string]interface{}{
		"interviewId": result.Session.InterviewID,
		"inviteId":    result.Session.InviteID,
		"sessionId":   result.Session.ID,
		"useCount":    result.Invite.UseCount,
		"superseded":  result.Superseded,
	})
	return bundle, nil
}

func (m *Manager) refuse(ctx context.Context, shortCode string, inv *models.InterviewInvite, now time.Time, cause error) error {
	m.markExpired(ctx, inv, now)
	metrics.InviteRedemptions.WithLabelValues(redemptionOutcome(cause)).Inc()
	m.logger.Info("invite redemption refused", map[string]interface{}{
		"shortCode": logger.Mask(shortCode),
		"reason":    string(apperrors.CodeOf(cause)),
	})
	return cause
}

// markExpired persists the expiry the redemption attempt discovered.
func (m *Manager) markExpired(ctx context.Context, inv *models.InterviewInvite, now time.Time) {
	if inv == nil || inv.Status != models.InviteActive || !inv.IsExpiredAt(now) {
		return
	}
	if _, err := m.store.MarkInviteExpired(ctx, inv.ID, now); err != nil {
		m.logger.Warn("failed to mark invite expired", map[string]interface{}{"inviteId": inv.ID, "error": err.Error()})
	}
}

func (m *Manager) loadBundle(ctx context.Context, interviewID string) (*Bundle, error) {
	iv, err := m.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	agent, err := m.store.GetAgent(ctx, iv.AgentID)
	if err != nil {
		return nil, err
	}
	job, err := m.store.GetJob(ctx, iv.JobID)
	if err != nil {
		return nil, err
	}
	applicant, err := m.store.GetApplicant(ctx, iv.ApplicantID)
	if err != nil {
		return nil, err
	}
	questions := []models.GuideQuestion{}
	if iv.GuideID != nil && *iv.GuideID != "" {
		if questions, err = m.store.ListGuideQuestions(ctx, *iv.GuideID); err != nil {
			return nil, err
		}
	}
	return &Bundle{Interview: iv, Agent: agent, Job: job, Applicant: applicant, Questions: questions}, nil
}

// Authenticate resolves a session token to its active session. A token whose
// jti is no longer the invite's active session is rejected even if it has
// not expired. An expired session is closed and recorded.
func (m *Manager) Authenticate(ctx context.Context, token string) (*models.CandidateSession, error) {
	if token == "" {
		return nil, apperrors.NewSessionInvalidError("missing session token")
	}
	now := m.now()

	claims, tokenErr := m.tokens.Parse(token, now)
	if tokenErr != nil && !errors.Is(tokenErr, errTokenExpired) {
		return nil, apperrors.NewSessionInvalidError(tokenErr.Error())
	}

	cs, err := m.store.GetSessionByJTI(ctx, claims.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewSessionInvalidError("unknown session")
		}
		return nil, err
	}
	if cs.InterviewID != claims.Subject || cs.InviteID != claims.InviteID {
		return nil, apperrors.NewSessionInvalidError("token does not match session")
	}
	if !cs.IsActive {
		return nil, apperrors.NewSessionInvalidError("session is no longer active")
	}

	if tokenErr != nil || cs.IsExpiredAt(now) {
		events, err := m.store.ExpireSession(ctx, cs, now)
		if err != nil {
			return nil, err
		}
		m.audit.Published(ctx, events...)
		return nil, apperrors.NewSessionExpiredError(cs.JTI)
	}
	return cs, nil
}
