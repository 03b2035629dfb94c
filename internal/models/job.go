package models

import "time"

type Job struct {
	ID             string    `json:"id" db:"id"`
	GroupID        string    `json:"groupId" db:"group_id"`
	OrganizationID *string   `json:"organizationId,omitempty" db:"organization_id"`
	ExternalJobID  string    `json:"externalJobId" db:"external_job_id"`
	Title          string    `json:"title" db:"title"`
	Description    string    `json:"description,omitempty" db:"description"`
	Location       string    `json:"location,omitempty" db:"location"`
	IsDeleted      bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

type Applicant struct {
	ID                  string    `json:"id" db:"id"`
	GroupID             string    `json:"groupId" db:"group_id"`
	OrganizationID      *string   `json:"organizationId,omitempty" db:"organization_id"`
	JobID               string    `json:"jobId" db:"job_id"`
	ExternalApplicantID string    `json:"externalApplicantId" db:"external_applicant_id"`
	FirstName           string    `json:"firstName" db:"first_name"`
	LastName            string    `json:"lastName" db:"last_name"`
	Email               string    `json:"email" db:"email"`
	Phone               string    `json:"phone,omitempty" db:"phone"`
	IsDeleted           bool      `json:"isDeleted" db:"is_deleted"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

func (a *Applicant) FullName() string {
	switch {
	case a.FirstName == "":
		return a.LastName
	case a.LastName == "":
		return a.FirstName
	default:
		return a.FirstName + " " + a.LastName
	}
}
