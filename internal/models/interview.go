package models

import "time"

type InterviewStatus string

const (
	InterviewPending    InterviewStatus = "pending"
	InterviewInProgress InterviewStatus = "in_progress"
	InterviewCompleted  InterviewStatus = "completed"
	InterviewCancelled  InterviewStatus = "cancelled"
	InterviewExpired    InterviewStatus = "expired"
)

func (s InterviewStatus) Valid() bool {
	switch s {
	case InterviewPending, InterviewInProgress, InterviewCompleted, InterviewCancelled, InterviewExpired:
		return true
	}
	return false
}

// IsTerminal reports whether polling can no longer change the status.
func (s InterviewStatus) IsTerminal() bool {
	return s == InterviewCompleted || s == InterviewCancelled || s == InterviewExpired
}

type Interview struct {
	ID                      string          `json:"id" db:"id"`
	GroupID                 string          `json:"groupId" db:"group_id"`
	JobID                   string          `json:"jobId" db:"job_id"`
	ApplicantID             string          `json:"applicantId" db:"applicant_id"`
	AgentID                 string          `json:"agentId" db:"agent_id"`
	GuideID                 *string         `json:"guideId,omitempty" db:"guide_id"`
	ConfigurationID         *string         `json:"configurationId,omitempty" db:"configuration_id"`
	Status                  InterviewStatus `json:"status" db:"status"`
	Token                   string          `json:"-" db:"token"`
	OrchestratorInterviewID string          `json:"orchestratorInterviewId,omitempty" db:"orchestrator_interview_id"`
	Score                   *float64        `json:"score,omitempty" db:"score"`
	Summary                 string          `json:"summary,omitempty" db:"summary"`
	Recommendation          string          `json:"recommendation,omitempty" db:"recommendation"`
	Strengths               []string        `json:"strengths,omitempty" db:"strengths"`
	AreasForImprovement     []string        `json:"areasForImprovement,omitempty" db:"areas_for_improvement"`
	WebhookReceivedAt       *time.Time      `json:"webhookReceivedAt,omitempty" db:"webhook_received_at"`
	ScheduledAt             *time.Time      `json:"scheduledAt,omitempty" db:"scheduled_at"`
	StartedAt               *time.Time      `json:"startedAt,omitempty" db:"started_at"`
	CompletedAt             *time.Time      `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt               time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time       `json:"updatedAt" db:"updated_at"`
}

// InterviewResult is written once an interview reaches a reported outcome.
type InterviewResult struct {
	ID                  string     `json:"id" db:"id"`
	InterviewID         string     `json:"interviewId" db:"interview_id"`
	Status              string     `json:"status" db:"status"`
	Score               *float64   `json:"score,omitempty" db:"score"`
	Recommendation      string     `json:"recommendation,omitempty" db:"recommendation"`
	Summary             string     `json:"summary,omitempty" db:"summary"`
	Strengths           []string   `json:"strengths,omitempty" db:"strengths"`
	AreasForImprovement []string   `json:"areasForImprovement,omitempty" db:"areas_for_improvement"`
	TranscriptURL       string     `json:"transcriptUrl,omitempty" db:"transcript_url"`
	WebhookSentAt       *time.Time `json:"webhookSentAt,omitempty" db:"webhook_sent_at"`
	WebhookResponse     string     `json:"webhookResponse,omitempty" db:"webhook_response"`
	CreatedAt           time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time  `json:"updatedAt" db:"updated_at"`
}

// Outcome is the part of an interview the orchestrator reports back.
type Outcome struct {
	Status              InterviewStatus `json:"status"`
	Score               *float64        `json:"score,omitempty"`
	Summary             string          `json:"summary,omitempty"`
	Recommendation      string          `json:"recommendation,omitempty"`
	Strengths           []string        `json:"strengths,omitempty"`
	AreasForImprovement []string        `json:"areasForImprovement,omitempty"`
}

func (iv *Interview) Outcome() Outcome {
	return Outcome{
		Status:              iv.Status,
		Score:               iv.Score,
		Summary:             iv.Summary,
		Recommendation:      iv.Recommendation,
		Strengths:           iv.Strengths,
		AreasForImprovement: iv.AreasForImprovement,
	}
}

// Equal treats nil and empty lists as the same value.
func (o Outcome) Equal(other Outcome) bool {
	if o.Status != other.Status || o.Summary != other.Summary || o.Recommendation != other.Recommendation {
		return false
	}
	if (o.Score == nil) != (other.Score == nil) {
		return false
	}
	if o.Score != nil && *o.Score != *other.Score {
		return false
	}
	return equalStrings(o.Strengths, other.Strengths) && equalStrings(o.AreasForImprovement, other.AreasForImprovement)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
