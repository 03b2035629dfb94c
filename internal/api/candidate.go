package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-sync/internal/sessions"
	"interview-sync/internal/webhooks"
)

func (s *Server) redeem(c *gin.Context) {
	bundle, err := s.deps.Sessions.Redeem(c.Request.Context(), c.Param("shortCode"), sessions.Client{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

type responseRequest struct {
	Payload map[string]interface{} `json:"payload"`
}

func (s *Server) submitResponse(c *gin.Context) {
	var req responseRequest
	if !bindJSON(c, responseSchema, &req) {
		return
	}
	started, err := s.deps.Lifecycle.RecordResponse(c.Request.Context(), sessionFrom(c), req.Payload)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"recorded": true, "interviewStarted": started})
}

// receiveWebhook authenticates and applies an orchestrator callback. A failed
// verification is a 401 and writes nothing.
func (s *Server) receiveWebhook(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	receipt, err := s.deps.Webhooks.Receive(c.Request.Context(), webhooks.Signed{
		Body:      body,
		Signature: c.GetHeader(s.config.SignatureHeader),
		Timestamp: c.GetHeader(s.config.TimestampHeader),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	if !receipt.Accepted {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errorBody{
			Code:    "WEBHOOK_REJECTED",
			Message: "webhook verification failed",
			Details: string(receipt.Reason),
		}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "interviewId": receipt.InterviewID, "changed": receipt.Changed})
}
