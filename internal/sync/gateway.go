// Package sync pushes ATS state (groups, jobs, applicants, interviews) to the
// orchestrator and reads remote interview state back.
package sync

import (
	"context"
	"time"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/credentials"
	"interview-sync/internal/models"
	"interview-sync/internal/orchestrator"
)

// Remote is the orchestrator surface the gateway drives. *orchestrator.Client
// implements it.
type Remote interface {
	UpsertGroup(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.GroupUpsertRequest) (*orchestrator.GroupUpsertResponse, error)
	UpsertJob(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.JobUpsertRequest) error
	DeleteJob(ctx context.Context, opts orchestrator.CallOptions, externalJobID string) error
	UpsertApplicant(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.ApplicantUpsertRequest) error
	CreateInterview(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.CreateInterviewRequest) (*orchestrator.CreateInterviewResponse, error)
	GetInterview(ctx context.Context, opts orchestrator.CallOptions, interviewID string) (*orchestrator.InterviewStatusResponse, error)
	RefreshInvite(ctx context.Context, opts orchestrator.CallOptions, interviewID string) (*orchestrator.InviteInfo, error)
	ListAgents(ctx context.Context, opts orchestrator.CallOptions) ([]orchestrator.CatalogItem, error)
	ListGuides(ctx context.Context, opts orchestrator.CallOptions) ([]orchestrator.CatalogItem, error)
	ListConfigurations(ctx context.Context, opts orchestrator.CallOptions) ([]orchestrator.CatalogItem, error)
	GetUser(ctx context.Context, opts orchestrator.CallOptions, userID string) (*orchestrator.User, error)
	GetUserByAuth0Sub(ctx context.Context, opts orchestrator.CallOptions, sub string) (*orchestrator.User, error)
	CreateUser(ctx context.Context, opts orchestrator.CallOptions, user orchestrator.User) (*orchestrator.User, error)
}

// GroupKeyStore persists the key the orchestrator issues at group sync.
type GroupKeyStore interface {
	SetOrchestratorAPIKey(ctx context.Context, groupID, key string) error
}

type Config struct {
	// FallbackKey is used when a group has no key of its own.
	FallbackKey     string
	BootstrapSecret string
	// Timeout applies when the group does not set request_timeout_ms.
	Timeout time.Duration
}

// Target identifies whose credentials an outbound call uses.
type Target struct {
	Group       *models.Group
	OverrideKey string
}

type Gateway struct {
	remote Remote
	groups GroupKeyStore
	config Config
	logger logger.Logger
}

func NewGateway(remote Remote, groups GroupKeyStore, cfg Config, log logger.Logger) *Gateway {
	return &Gateway{
		remote: remote,
		groups: groups,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "sync_gateway"}),
	}
}

func (g *Gateway) sources(t Target) credentials.Sources {
	s := credentials.Sources{
		Override:        t.OverrideKey,
		FallbackKey:     g.config.FallbackKey,
		BootstrapSecret: g.config.BootstrapSecret,
	}
	if t.Group != nil {
		s.EntityKey = t.Group.OrchestratorAPIKey
	}
	return s
}

// Options resolves the credential and timeout for one call. ok is false when
// nothing resolved for a purpose that tolerates it; required purposes return
// a key-not-configured error instead.
func (g *Gateway) Options(t Target, purpose credentials.Purpose, operation string) (opts orchestrator.CallOptions, ok bool, err error) {
	sources := g.sources(t)
	cred, found := credentials.Resolve(purpose, sources)
	if !found {
		if purpose.Required() {
			return opts, false, apperrors.NewKeyNotConfiguredError(operation)
		}
		g.logger.Debug("no orchestrator key resolved, skipping", map[string]interface{}{
			"operation": operation,
			"purpose":   purpose.String(),
		})
		return opts, false, nil
	}
	return orchestrator.CallOptions{
		Credential: cred,
		Timeout:    t.Group.RequestTimeout(g.config.Timeout),
	}, true, nil
}

// SyncGroup upserts the group remotely and stores the key the orchestrator
// returns on the group.
func (g *Gateway) SyncGroup(ctx context.Context, t Target) (*orchestrator.GroupUpsertResponse, error) {
	if t.Group == nil {
		return nil, apperrors.NewValidationError("group is required")
	}
	opts, _, err := g.Options(t, credentials.PurposeBootstrap, "sync_group")
	if err != nil {
		return nil, err
	}

	resp, err := g.remote.UpsertGroup(ctx, opts, orchestrator.GroupUpsertRequest{
		ExternalGroupID: t.Group.ExternalGroupID,
		Name:            t.Group.Name,
		ATSURL:          t.Group.ATSURL,
		ATSAPIKey:       t.Group.ATSAPIKey,
	})
	if err != nil {
		return nil, err
	}

	if resp.APIKey != "" && resp.APIKey != t.Group.OrchestratorAPIKey {
		if err := g.groups.SetOrchestratorAPIKey(ctx, t.Group.ID, resp.APIKey); err != nil {
			return nil, err
		}
		t.Group.OrchestratorAPIKey = resp.APIKey
	}

	g.logger.Info("group synced", map[string]interface{}{
		"groupId":          t.Group.ID,
		"credentialSource": string(opts.Credential.Source),
		"apiKey":           logger.Mask(resp.APIKey),
	})
	return resp, nil
}

// SyncJob pushes a job. It is skipped (false, nil) when no key resolves;
// remote failures are returned.
func (g *Gateway) SyncJob(ctx context.Context, t Target, job *models.Job) (bool, error) {
	opts, ok, err := g.Options(t, credentials.PurposeBestEffort, "sync_job")
	if err != nil || !ok {
		return false, err
	}
	return true, g.PushJob(ctx, opts, job)
}

// SyncApplicant pushes an applicant under the same policy as SyncJob.
func (g *Gateway) SyncApplicant(ctx context.Context, t Target, applicant *models.Applicant, externalJobID string) (bool, error) {
	opts, ok, err := g.Options(t, credentials.PurposeBestEffort, "sync_applicant")
	if err != nil || !ok {
		return false, err
	}
	return true, g.PushApplicant(ctx, opts, applicant, externalJobID)
}

// PushJob upserts a job with an already resolved credential.
func (g *Gateway) PushJob(ctx context.Context, opts orchestrator.CallOptions, job *models.Job) error {
	return g.remote.UpsertJob(ctx, opts, orchestrator.JobUpsertRequest{
		ExternalJobID:  job.ExternalJobID,
		OrganizationID: deref(job.OrganizationID),
		Title:          job.Title,
		Description:    job.Description,
		Location:       job.Location,
	})
}

// PushApplicant upserts an applicant with an already resolved credential.
func (g *Gateway) PushApplicant(ctx context.Context, opts orchestrator.CallOptions, a *models.Applicant, externalJobID string) error {
	return g.remote.UpsertApplicant(ctx, opts, orchestrator.ApplicantUpsertRequest{
		ExternalApplicantID: a.ExternalApplicantID,
		ExternalJobID:       externalJobID,
		OrganizationID:      deref(a.OrganizationID),
		FirstName:           a.FirstName,
		LastName:            a.LastName,
		Email:               a.Email,
		Phone:               a.Phone,
	})
}

// DeleteJob propagates a job deletion. Failures are logged, never returned.
func (g *Gateway) DeleteJob(ctx context.Context, t Target, externalJobID string) bool {
	opts, ok, _ := g.Options(t, credentials.PurposeBestEffort, "delete_job")
	if !ok {
		return false
	}
	if err := g.remote.DeleteJob(ctx, opts, externalJobID); err != nil {
		g.logger.Warn("job delete propagation failed", map[string]interface{}{
			"externalJobId": externalJobID,
			"error":         err.Error(),
		})
		return false
	}
	return true
}

func (g *Gateway) CreateInterview(ctx context.Context, opts orchestrator.CallOptions, req orchestrator.CreateInterviewRequest) (*orchestrator.CreateInterviewResponse, error) {
	return g.remote.CreateInterview(ctx, opts, req)
}

// RefreshInvite asks the orchestrator to revoke and reissue the interview's invite.
func (g *Gateway) RefreshInvite(ctx context.Context, t Target, orchestratorInterviewID string) (*orchestrator.InviteInfo, error) {
	opts, _, err := g.Options(t, credentials.PurposeWrite, "refresh_invite")
	if err != nil {
		return nil, err
	}
	return g.remote.RefreshInvite(ctx, opts, orchestratorInterviewID)
}

// FetchInterviewStatus polls the remote interview. It returns (nil, false, nil)
// when no key resolves.
func (g *Gateway) FetchInterviewStatus(ctx context.Context, t Target, orchestratorInterviewID string) (*orchestrator.InterviewStatusResponse, bool, error) {
	opts, ok, err := g.Options(t, credentials.PurposeRead, "get_interview")
	if err != nil || !ok {
		return nil, false, err
	}
	resp, err := g.remote.GetInterview(ctx, opts, orchestratorInterviewID)
	if err != nil {
		return nil, true, err
	}
	return resp, true, nil
}

func (g *Gateway) ListAgents(ctx context.Context, t Target) ([]orchestrator.CatalogItem, error) {
	return g.list(ctx, t, "list_agents", g.remote.ListAgents)
}

func (g *Gateway) ListGuides(ctx context.Context, t Target) ([]orchestrator.CatalogItem, error) {
	return g.list(ctx, t, "list_guides", g.remote.ListGuides)
}

func (g *Gateway) ListConfigurations(ctx context.Context, t Target) ([]orchestrator.CatalogItem, error) {
	return g.list(ctx, t, "list_configurations", g.remote.ListConfigurations)
}

func (g *Gateway) list(ctx context.Context, t Target, operation string,
	fn func(context.Context, orchestrator.CallOptions) ([]orchestrator.CatalogItem, error)) ([]orchestrator.CatalogItem, error) {
	opts, ok, err := g.Options(t, credentials.PurposeRead, operation)
	if err != nil || !ok {
		return []orchestrator.CatalogItem{}, err
	}
	items, err := fn(ctx, opts)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []orchestrator.CatalogItem{}
	}
	return items, nil
}

func (g *Gateway) GetUser(ctx context.Context, t Target, userID string) (*orchestrator.User, error) {
	opts, ok, err := g.Options(t, credentials.PurposeRead, "get_user")
	if err != nil || !ok {
		return nil, err
	}
	return g.remote.GetUser(ctx, opts, userID)
}

func (g *Gateway) GetUserByAuth0Sub(ctx context.Context, t Target, sub string) (*orchestrator.User, error) {
	opts, ok, err := g.Options(t, credentials.PurposeRead, "get_user_by_sub")
	if err != nil || !ok {
		return nil, err
	}
	return g.remote.GetUserByAuth0Sub(ctx, opts, sub)
}

func (g *Gateway) CreateUser(ctx context.Context, t Target, user orchestrator.User) (*orchestrator.User, error) {
	opts, _, err := g.Options(t, credentials.PurposeWrite, "create_user")
	if err != nil {
		return nil, err
	}
	return g.remote.CreateUser(ctx, opts, user)
}

// EnsureUser looks the user up by Auth0 subject and creates it on a 404.
// Every failure is logged and swallowed; nil means the user could not be
// provisioned.
func (g *Gateway) EnsureUser(ctx context.Context, t Target, user orchestrator.User) *orchestrator.User {
	opts, ok, _ := g.Options(t, credentials.PurposeBestEffort, "ensure_user")
	if !ok {
		return nil
	}

	existing, err := g.remote.GetUserByAuth0Sub(ctx, opts, user.Auth0Sub)
	if err == nil {
		return existing
	}
	if apperrors.StatusCode(err) != 404 {
		g.logger.Warn("user lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}

	created, err := g.remote.CreateUser(ctx, opts, user)
	if err != nil {
		g.logger.Warn("user provisioning failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return created
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
