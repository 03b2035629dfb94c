package models

import "time"

// Agent is the interviewer persona. Voice and prompt are opaque to this service.
type Agent struct {
	ID             string    `json:"id" db:"id"`
	GroupID        string    `json:"groupId" db:"group_id"`
	OrganizationID *string   `json:"organizationId,omitempty" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	Voice          string    `json:"voice,omitempty" db:"voice"`
	Prompt         string    `json:"prompt,omitempty" db:"prompt"`
	IsDeleted      bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type InterviewGuide struct {
	ID             string          `json:"id" db:"id"`
	GroupID        string          `json:"groupId" db:"group_id"`
	OrganizationID *string         `json:"organizationId,omitempty" db:"organization_id"`
	Name           string          `json:"name" db:"name"`
	Questions      []GuideQuestion `json:"questions,omitempty"`
	IsDeleted      bool            `json:"isDeleted" db:"is_deleted"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
}

type GuideQuestion struct {
	ID       string `json:"id" db:"id"`
	GuideID  string `json:"guideId" db:"guide_id"`
	Position int    `json:"position" db:"position"`
	Text     string `json:"text" db:"text"`
}

type InterviewConfiguration struct {
	ID             string    `json:"id" db:"id"`
	GroupID        string    `json:"groupId" db:"group_id"`
	OrganizationID *string   `json:"organizationId,omitempty" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	IsDeleted      bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}
