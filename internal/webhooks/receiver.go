package webhooks

import (
	"context"
	"encoding/json"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/validation"
	"interview-sync/internal/models"
)

var callbackSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["orchestratorInterviewId", "status"],
	"properties": {
		"orchestratorInterviewId": {"type": "string", "minLength": 1},
		"status": {"type": "string", "enum": ["pending", "in_progress", "completed", "cancelled", "expired"]},
		"score": {"type": ["number", "null"]},
		"summary": {"type": ["string", "null"]},
		"recommendation": {"type": ["string", "null"]},
		"strengths": {"type": ["array", "null"], "items": {"type": "string"}},
		"areasForImprovement": {"type": ["array", "null"], "items": {"type": "string"}},
		"transcriptUrl": {"type": ["string", "null"]}
	}
}`)

// Callback is the body the orchestrator posts when an interview changes.
type Callback struct {
	OrchestratorInterviewID string   `json:"orchestratorInterviewId"`
	Status                  string   `json:"status"`
	Score                   *float64 `json:"score,omitempty"`
	Summary                 string   `json:"summary,omitempty"`
	Recommendation          string   `json:"recommendation,omitempty"`
	Strengths               []string `json:"strengths,omitempty"`
	AreasForImprovement     []string `json:"areasForImprovement,omitempty"`
	TranscriptURL           string   `json:"transcriptUrl,omitempty"`
}

func (c Callback) Outcome() models.Outcome {
	return models.Outcome{
		Status:              models.InterviewStatus(c.Status),
		Score:               c.Score,
		Summary:             c.Summary,
		Recommendation:      c.Recommendation,
		Strengths:           c.Strengths,
		AreasForImprovement: c.AreasForImprovement,
	}
}

type InterviewLookup interface {
	GetInterviewByOrchestratorID(ctx context.Context, orchestratorID string) (*models.Interview, error)
	GetGroup(ctx context.Context, id string) (*models.Group, error)
}

// Applier writes an authenticated callback to the interview.
type Applier interface {
	UpdateFromWebhook(ctx context.Context, iv *models.Interview, outcome models.Outcome, transcriptURL string) (bool, error)
}

// Signed is one inbound request as received.
type Signed struct {
	Body      []byte
	Signature string
	Timestamp string
}

type Receipt struct {
	Accepted    bool
	Reason      Reason
	InterviewID string
	Changed     bool
}

type Receiver struct {
	verifier      *Verifier
	defaultSecret string
	interviews    InterviewLookup
	applier       Applier
	logger        logger.Logger
}

func NewReceiver(verifier *Verifier, defaultSecret string, interviews InterviewLookup, applier Applier, log logger.Logger) *Receiver {
	return &Receiver{
		verifier:      verifier,
		defaultSecret: defaultSecret,
		interviews:    interviews,
		applier:       applier,
		logger:        log.WithFields(map[string]interface{}{"component": "webhook_receiver"}),
	}
}

// Receive verifies a callback and applies it. A failed verification returns a
// receipt with Accepted=false and no error; nothing is written in that case.
func (r *Receiver) Receive(ctx context.Context, in Signed) (*Receipt, error) {
	var envelope struct {
		OrchestratorInterviewID string `json:"orchestratorInterviewId"`
	}
	_ = json.Unmarshal(in.Body, &envelope)

	iv, secret, err := r.resolve(ctx, envelope.OrchestratorInterviewID)
	if err != nil {
		r.logger.Error("webhook secret lookup failed", map[string]interface{}{
			"orchestratorInterviewId": envelope.OrchestratorInterviewID,
			"error":                   err.Error(),
		})
		return nil, apperrors.NewDatabaseError("resolve_webhook_secret", err)
	}

	verdict := r.verifier.Verify(secret, in.Body, in.Signature, in.Timestamp)
	if !verdict.Valid {
		r.logger.Warn("webhook rejected", map[string]interface{}{
			"reason":                  string(verdict.Reason),
			"orchestratorInterviewId": envelope.OrchestratorInterviewID,
			"signature":               logger.Mask(in.Signature),
		})
		return &Receipt{Accepted: false, Reason: verdict.Reason}, nil
	}
	if verdict.Reason == ReasonUnsigned {
		r.logger.Warn("accepting unsigned webhook, no secret configured", map[string]interface{}{
			"orchestratorInterviewId": envelope.OrchestratorInterviewID,
		})
	}

	if res := callbackSchema.ValidateBytes(in.Body); !res.Valid {
		return nil, apperrors.NewValidationError(res.Summary())
	}
	var cb Callback
	if err := json.Unmarshal(in.Body, &cb); err != nil {
		return nil, apperrors.NewValidationError("malformed callback body: " + err.Error())
	}
	if iv == nil {
		return nil, apperrors.NewResourceNotFoundError("Interview", "orchestratorInterviewId: "+cb.OrchestratorInterviewID)
	}

	changed, err := r.applier.UpdateFromWebhook(ctx, iv, cb.Outcome(), cb.TranscriptURL)
	if err != nil {
		return nil, err
	}
	return &Receipt{Accepted: true, Reason: verdict.Reason, InterviewID: iv.ID, Changed: changed}, nil
}

// resolve finds the interview and the secret its group signs with. The group
// secret wins over the process default. The default applies only when the
// interview is unknown or its group loaded without a secret. Any other lookup
// failure is returned.
func (r *Receiver) resolve(ctx context.Context, orchestratorID string) (*models.Interview, string, error) {
	if orchestratorID == "" {
		return nil, r.defaultSecret, nil
	}
	iv, err := r.interviews.GetInterviewByOrchestratorID(ctx, orchestratorID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, r.defaultSecret, nil
		}
		return nil, "", err
	}
	group, err := r.interviews.GetGroup(ctx, iv.GroupID)
	if err != nil {
		return nil, "", err
	}
	if group.WebhookSecret == "" {
		return iv, r.defaultSecret, nil
	}
	return iv, group.WebhookSecret, nil
}
