package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"interview-sync/internal/models"
	syncgw "interview-sync/internal/sync"
)

// headerOverrideKey lets an ATS call supply an orchestrator key for one request.
const headerOverrideKey = "X-Orchestrator-Key"

func (s *Server) target(c *gin.Context) syncgw.Target {
	return syncgw.Target{Group: groupFrom(c), OverrideKey: c.GetHeader(headerOverrideKey)}
}

func (s *Server) syncGroup(c *gin.Context) {
	resp, err := s.deps.Gateway.SyncGroup(c.Request.Context(), s.target(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orchestratorGroupId": resp.GroupID, "keyIssued": resp.APIKey != ""})
}

type jobRequest struct {
	ExternalJobID  string  `json:"externalJobId"`
	OrganizationID *string `json:"organizationId"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Location       string  `json:"location"`
}

// upsertJob stores the job, then pushes it when a key resolves. A remote
// failure is returned after the local write; the call is safe to repeat.
func (s *Server) upsertJob(c *gin.Context) {
	var req jobRequest
	if !bindJSON(c, jobSchema, &req) {
		return
	}
	group := groupFrom(c)
	job := &models.Job{
		ID:             uuid.New().String(),
		GroupID:        group.ID,
		OrganizationID: req.OrganizationID,
		ExternalJobID:  req.ExternalJobID,
		Title:          req.Title,
		Description:    req.Description,
		Location:       req.Location,
	}
	if err := s.deps.Store.UpsertJob(c.Request.Context(), job); err != nil {
		s.fail(c, err)
		return
	}
	synced, err := s.deps.Gateway.SyncJob(c.Request.Context(), s.target(c), job)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"job": job, "synced": synced})
}

func (s *Server) deleteJob(c *gin.Context) {
	externalID := c.Param("externalJobId")
	deleted, err := s.deps.Store.SoftDeleteJob(c.Request.Context(), groupFrom(c).ID, externalID)
	if err != nil {
		s.fail(c, err)
		return
	}
	propagated := false
	if deleted {
		propagated = s.deps.Gateway.DeleteJob(c.Request.Context(), s.target(c), externalID)
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted, "propagated": propagated})
}

type applicantRequest struct {
	ExternalApplicantID string  `json:"externalApplicantId"`
	ExternalJobID       string  `json:"externalJobId"`
	OrganizationID      *string `json:"organizationId"`
	FirstName           string  `json:"firstName"`
	LastName            string  `json:"lastName"`
	Email               string  `json:"email"`
	Phone               string  `json:"phone"`
}

func (s *Server) upsertApplicant(c *gin.Context) {
	var req applicantRequest
	if !bindJSON(c, applicantSchema, &req) {
		return
	}
	ctx := c.Request.Context()
	group := groupFrom(c)

	job, err := s.deps.Store.GetJobByExternalID(ctx, group.ID, req.ExternalJobID)
	if err != nil {
		s.fail(c, err)
		return
	}
	applicant := &models.Applicant{
		ID:                  uuid.New().String(),
		GroupID:             group.ID,
		OrganizationID:      req.OrganizationID,
		JobID:               job.ID,
		ExternalApplicantID: req.ExternalApplicantID,
		FirstName:           req.FirstName,
		LastName:            req.LastName,
		Email:               req.Email,
		Phone:               req.Phone,
	}
	if err := s.deps.Store.UpsertApplicant(ctx, applicant); err != nil {
		s.fail(c, err)
		return
	}
	synced, err := s.deps.Gateway.SyncApplicant(ctx, s.target(c), applicant, job.ExternalJobID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"applicant": applicant, "synced": synced})
}

type webhookConfigRequest struct {
	URL    string   `json:"url"`
	Secret string   `json:"secret"`
	Events []string `json:"events"`
}

func (s *Server) createWebhookConfig(c *gin.Context) {
	var req webhookConfigRequest
	if !bindJSON(c, webhookConfigSchema, &req) {
		return
	}
	cfg := &models.WebhookConfig{
		GroupID:  groupFrom(c).ID,
		URL:      req.URL,
		Secret:   req.Secret,
		Events:   req.Events,
		IsActive: true,
	}
	if err := s.deps.Store.CreateWebhookConfig(c.Request.Context(), cfg); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}
