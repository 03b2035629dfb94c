// Package api exposes the ATS, candidate and counterpart HTTP surfaces.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/observability"
	"interview-sync/internal/invites"
	"interview-sync/internal/models"
	"interview-sync/internal/orchestrator"
	"interview-sync/internal/sessions"
	syncgw "interview-sync/internal/sync"
	"interview-sync/internal/webhooks"
)

// Store is the direct persistence the handlers need beyond the managers.
type Store interface {
	GetGroupByAPIKeyHash(ctx context.Context, hash string) (*models.Group, error)
	UpsertJob(ctx context.Context, j *models.Job) error
	GetJobByExternalID(ctx context.Context, groupID, externalJobID string) (*models.Job, error)
	SoftDeleteJob(ctx context.Context, groupID, externalJobID string) (bool, error)
	UpsertApplicant(ctx context.Context, a *models.Applicant) error
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	GetCurrentInvite(ctx context.Context, interviewID string) (*models.InterviewInvite, error)
	CreateWebhookConfig(ctx context.Context, c *models.WebhookConfig) error
}

type Gateway interface {
	SyncGroup(ctx context.Context, t syncgw.Target) (*orchestrator.GroupUpsertResponse, error)
	SyncJob(ctx context.Context, t syncgw.Target, job *models.Job) (bool, error)
	SyncApplicant(ctx context.Context, t syncgw.Target, applicant *models.Applicant, externalJobID string) (bool, error)
	DeleteJob(ctx context.Context, t syncgw.Target, externalJobID string) bool
}

type Lifecycle interface {
	SendInterviewRequest(ctx context.Context, req invites.InterviewRequest) (*invites.Created, error)
	RefreshInvite(ctx context.Context, interviewID, actor string) (*invites.Refreshed, error)
	RefreshStatusFromOrchestrator(ctx context.Context, interviewID string) (*invites.StatusRefresh, error)
	RevokeInvite(ctx context.Context, interviewID, reason, actor string) (*models.InterviewInvite, error)
	RecordResponse(ctx context.Context, session *models.CandidateSession, payload map[string]interface{}) (bool, error)
}

type Sessions interface {
	Redeem(ctx context.Context, shortCode string, client sessions.Client) (*sessions.Bundle, error)
	Authenticate(ctx context.Context, token string) (*models.CandidateSession, error)
}

type AuditLog interface {
	List(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error)
}

type Orphans interface {
	Summarize(ctx context.Context, groupID string, known []string) (*models.OrphanedEntitySummary, error)
}

type WebhookReceiver interface {
	Receive(ctx context.Context, in webhooks.Signed) (*webhooks.Receipt, error)
}

// Pinger is a dependency checked by /ready.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a health check function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type Config struct {
	SignatureHeader string
	TimestampHeader string
	// RedeemRate is requests per second per client IP on the redemption route.
	RedeemRate  float64
	RedeemBurst int
}

type Deps struct {
	Store     Store
	Gateway   Gateway
	Lifecycle Lifecycle
	Sessions  Sessions
	Audit     AuditLog
	Orphans   Orphans
	Webhooks  WebhookReceiver
	// Ready maps a dependency name to its health check.
	Ready map[string]Pinger
	Obs   *observability.Observability
}

type Server struct {
	deps   Deps
	config Config
	logger logger.Logger
}

func NewServer(deps Deps, cfg Config, log logger.Logger) *Server {
	if cfg.SignatureHeader == "" {
		cfg.SignatureHeader = webhooks.HeaderSignature
	}
	if cfg.TimestampHeader == "" {
		cfg.TimestampHeader = webhooks.HeaderTimestamp
	}
	return &Server{
		deps:   deps,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "api"}),
	}
}

// Router builds the gin engine with every route mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.requestMetrics())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1", s.groupAuth())
	{
		v1.POST("/groups/sync", s.syncGroup)
		v1.PUT("/jobs", s.upsertJob)
		v1.DELETE("/jobs/:externalJobId", s.deleteJob)
		v1.PUT("/applicants", s.upsertApplicant)
		v1.POST("/webhooks", s.createWebhookConfig)

		v1.POST("/interviews", s.createInterview)
		v1.GET("/interviews/:id", s.getInterview)
		v1.POST("/interviews/:id/refresh-invite", s.refreshInvite)
		v1.POST("/interviews/:id/refresh-status", s.refreshStatus)
		v1.POST("/interviews/:id/revoke-invite", s.revokeInvite)
		v1.GET("/interviews/:id/audit", s.listAudit)

		v1.GET("/orphans", s.orphans)
	}

	r.POST("/i/:shortCode/redeem", newIPRateLimiter(s.config.RedeemRate, s.config.RedeemBurst, 10*time.Minute).middleware(), s.redeem)
	r.POST("/session/responses", s.sessionAuth(), s.submitResponse)

	r.POST("/webhooks/orchestrator", s.receiveWebhook)
	return r
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().UTC().Format(time.RFC3339)})
}

func (s *Server) ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.Ready))
	status := http.StatusOK
	for name, p := range s.deps.Ready {
		if err := p.Ping(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks, "time": time.Now().UTC().Format(time.RFC3339)})
}
