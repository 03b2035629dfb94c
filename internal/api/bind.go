package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"interview-sync/internal/common/validation"
)

const maxBodyBytes = 1 << 20

// readBody reads at most maxBodyBytes. A larger body is a 413, never a
// truncated read.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err == nil {
		return body, true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": errorBody{
			Code:    "PAYLOAD_TOO_LARGE",
			Message: "request body too large",
			Details: fmt.Sprintf("limit: %d bytes", tooLarge.Limit),
		}})
		return nil, false
	}
	badRequest(c, "unreadable body: "+err.Error())
	return nil, false
}

// bindJSON reads the body, checks it against schema and decodes it into dst.
// It writes the 400 itself and returns false when the body is unusable.
func bindJSON(c *gin.Context, schema *validation.Schema, dst interface{}) bool {
	body, ok := readBody(c)
	if !ok {
		return false
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	if schema != nil {
		if res := schema.ValidateBytes(body); !res.Valid {
			badRequest(c, res.Summary())
			return false
		}
	}
	if err := json.Unmarshal(body, dst); err != nil {
		badRequest(c, "malformed JSON: "+err.Error())
		return false
	}
	return true
}

var jobSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["externalJobId", "title"],
	"properties": {
		"externalJobId": {"type": "string", "minLength": 1},
		"organizationId": {"type": ["string", "null"]},
		"title": {"type": "string", "minLength": 1},
		"description": {"type": ["string", "null"]},
		"location": {"type": ["string", "null"]}
	}
}`)

var applicantSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["externalApplicantId", "externalJobId", "email"],
	"properties": {
		"externalApplicantId": {"type": "string", "minLength": 1},
		"externalJobId": {"type": "string", "minLength": 1},
		"organizationId": {"type": ["string", "null"]},
		"firstName": {"type": ["string", "null"]},
		"lastName": {"type": ["string", "null"]},
		"email": {"type": "string", "minLength": 3},
		"phone": {"type": ["string", "null"]}
	}
}`)

var interviewSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["externalApplicantId", "agentId"],
	"properties": {
		"externalApplicantId": {"type": "string", "minLength": 1},
		"externalJobId": {"type": ["string", "null"]},
		"agentId": {"type": "string", "minLength": 1},
		"interviewGuideId": {"type": ["string", "null"]},
		"configurationId": {"type": ["string", "null"]},
		"actor": {"type": ["string", "null"]}
	}
}`)

var webhookConfigSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["url"],
	"properties": {
		"url": {"type": "string", "pattern": "^https?://"},
		"secret": {"type": ["string", "null"]},
		"events": {"type": ["array", "null"], "items": {"type": "string"}}
	}
}`)

var responseSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["payload"],
	"properties": {
		"payload": {"type": "object"}
	}
}`)
