package models

import "time"

// Group is the tenant root. OrchestratorAPIKey is issued by the counterpart
// at group sync and used for every later call made on the group's behalf.
type Group struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	ExternalGroupID    string    `json:"externalGroupId" db:"external_group_id"`
	APIKeyHash         string    `json:"-" db:"api_key_hash"`
	OrchestratorAPIKey string    `json:"-" db:"orchestrator_api_key"`
	ATSURL             string    `json:"atsUrl,omitempty" db:"ats_url"`
	ATSAPIKey          string    `json:"-" db:"ats_api_key"`
	WebhookSecret      string    `json:"-" db:"webhook_secret"`
	RequestTimeoutMs   int       `json:"requestTimeoutMs,omitempty" db:"request_timeout_ms"`
	IsActive           bool      `json:"isActive" db:"is_active"`
	CreatedAt          time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// RequestTimeout returns the group's outbound timeout, or fallback when unset.
func (g *Group) RequestTimeout(fallback time.Duration) time.Duration {
	if g == nil || g.RequestTimeoutMs <= 0 {
		return fallback
	}
	return time.Duration(g.RequestTimeoutMs) * time.Millisecond
}

type Organization struct {
	ID        string    `json:"id" db:"id"`
	GroupID   string    `json:"groupId" db:"group_id"`
	ParentID  *string   `json:"parentId,omitempty" db:"parent_id"`
	Name      string    `json:"name" db:"name"`
	IsDeleted bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}
