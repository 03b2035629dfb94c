package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/invites"
	"interview-sync/internal/models"
	"interview-sync/internal/reconcile"
)

type interviewRequest struct {
	ExternalApplicantID string `json:"externalApplicantId"`
	ExternalJobID       string `json:"externalJobId"`
	AgentID             string `json:"agentId"`
	GuideID             string `json:"interviewGuideId"`
	ConfigurationID     string `json:"configurationId"`
	Actor               string `json:"actor"`
}

func (s *Server) createInterview(c *gin.Context) {
	var req interviewRequest
	if !bindJSON(c, interviewSchema, &req) {
		return
	}
	created, err := s.deps.Lifecycle.SendInterviewRequest(c.Request.Context(), invites.InterviewRequest{
		GroupID:             groupFrom(c).ID,
		ExternalApplicantID: req.ExternalApplicantID,
		ExternalJobID:       req.ExternalJobID,
		AgentID:             req.AgentID,
		GuideID:             req.GuideID,
		ConfigurationID:     req.ConfigurationID,
		OverrideKey:         c.GetHeader(headerOverrideKey),
		Actor:               req.Actor,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"interview": created.Interview,
		"invite":    created.Invite,
		"link":      created.Link,
	})
}

// ownedInterview loads the path interview and hides interviews of other groups.
func (s *Server) ownedInterview(c *gin.Context) (*models.Interview, bool) {
	id := c.Param("id")
	iv, err := s.deps.Store.GetInterview(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	if iv.GroupID != groupFrom(c).ID {
		s.fail(c, apperrors.NewResourceNotFoundError("Interview", id))
		return nil, false
	}
	return iv, true
}

func (s *Server) getInterview(c *gin.Context) {
	iv, ok := s.ownedInterview(c)
	if !ok {
		return
	}
	resp := gin.H{"interview": iv}
	inv, err := s.deps.Store.GetCurrentInvite(c.Request.Context(), iv.ID)
	switch {
	case err == nil:
		resp["invite"] = inv
	case !apperrors.IsNotFound(err):
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type actorRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (s *Server) refreshInvite(c *gin.Context) {
	iv, ok := s.ownedInterview(c)
	if !ok {
		return
	}
	var req actorRequest
	if !bindJSON(c, nil, &req) {
		return
	}
	refreshed, err := s.deps.Lifecycle.RefreshInvite(c.Request.Context(), iv.ID, req.Actor)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invite":  refreshed.Invite,
		"revoked": refreshed.Revoked,
		"link":    refreshed.Link,
	})
}

func (s *Server) refreshStatus(c *gin.Context) {
	iv, ok := s.ownedInterview(c)
	if !ok {
		return
	}
	res, err := s.deps.Lifecycle.RefreshStatusFromOrchestrator(c.Request.Context(), iv.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"interview": res.Interview,
		"previous":  res.Previous,
		"changed":   res.Changed,
	})
}

func (s *Server) revokeInvite(c *gin.Context) {
	iv, ok := s.ownedInterview(c)
	if !ok {
		return
	}
	var req actorRequest
	if !bindJSON(c, nil, &req) {
		return
	}
	inv, err := s.deps.Lifecycle.RevokeInvite(c.Request.Context(), iv.ID, req.Reason, req.Actor)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invite": inv})
}

func (s *Server) listAudit(c *gin.Context) {
	iv, ok := s.ownedInterview(c)
	if !ok {
		return
	}
	events, err := s.deps.Audit.List(c.Request.Context(), iv.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	if events == nil {
		events = []models.InterviewAuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) orphans(c *gin.Context) {
	known := reconcile.ParseIDs(c.Query("knownOrganizationIds"))
	summary, err := s.deps.Orphans.Summarize(c.Request.Context(), groupFrom(c).ID, known)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary, "total": summary.Total()})
}
