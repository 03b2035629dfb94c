package orchestrator

import "time"

// Remote invite and interview states as reported by the orchestrator.
const (
	RemoteStatusCompleted  = "completed"
	RemoteStatusInProgress = "in_progress"

	RemoteInviteMaxUsesReached = "max_uses_reached"
	RemoteInviteExpired        = "expired"
	RemoteInviteRevoked        = "revoked"
)

type GroupUpsertRequest struct {
	ExternalGroupID string `json:"externalGroupId"`
	Name            string `json:"name"`
	ATSURL          string `json:"atsUrl,omitempty"`
	ATSAPIKey       string `json:"atsApiKey,omitempty"`
}

type GroupUpsertResponse struct {
	GroupID string `json:"groupId"`
	APIKey  string `json:"apiKey"`
}

type JobUpsertRequest struct {
	ExternalJobID  string `json:"externalJobId"`
	OrganizationID string `json:"organizationId,omitempty"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Location       string `json:"location,omitempty"`
}

type ApplicantUpsertRequest struct {
	ExternalApplicantID string `json:"externalApplicantId"`
	ExternalJobID       string `json:"externalJobId"`
	OrganizationID      string `json:"organizationId,omitempty"`
	FirstName           string `json:"firstName"`
	LastName            string `json:"lastName"`
	Email               string `json:"email"`
	Phone               string `json:"phone,omitempty"`
}

type CreateInterviewRequest struct {
	ExternalJobID       string `json:"externalJobId"`
	ExternalApplicantID string `json:"externalApplicantId"`
	AgentID             string `json:"agentId"`
	GuideID             string `json:"interviewGuideId,omitempty"`
	ConfigurationID     string `json:"configurationId,omitempty"`
}

type InviteInfo struct {
	ShortCode string    `json:"shortCode"`
	URL       string    `json:"url,omitempty"`
	Status    string    `json:"status,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
	MaxUses   int       `json:"maxUses"`
	UseCount  int       `json:"useCount"`
}

type CreateInterviewResponse struct {
	InterviewID string      `json:"interviewId"`
	Token       string      `json:"token"`
	Status      string      `json:"status"`
	Invite      *InviteInfo `json:"invite,omitempty"`
}

type InterviewStatusResponse struct {
	InterviewID string      `json:"interviewId"`
	Status      string      `json:"status"`
	Invite      *InviteInfo `json:"invite,omitempty"`
	Score       *float64    `json:"score,omitempty"`
	Summary     string      `json:"summary,omitempty"`
}

// InviteStatus returns the remote invite state, or "" when absent.
func (r *InterviewStatusResponse) InviteStatus() string {
	if r == nil || r.Invite == nil {
		return ""
	}
	return r.Invite.Status
}

type CatalogItem struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	OrganizationID string `json:"organizationId,omitempty"`
}

type User struct {
	ID       string `json:"id,omitempty"`
	Auth0Sub string `json:"auth0Sub"`
	Email    string `json:"email"`
	Name     string `json:"name,omitempty"`
	GroupID  string `json:"groupId,omitempty"`
}
