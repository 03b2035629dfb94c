package models

import (
	"strings"
	"time"
)

type InviteStatus string

const (
	InviteActive   InviteStatus = "active"
	InviteConsumed InviteStatus = "consumed"
	InviteRevoked  InviteStatus = "revoked"
	InviteExpired  InviteStatus = "expired"
)

type InterviewInvite struct {
	ID            string       `json:"id" db:"id"`
	InterviewID   string       `json:"interviewId" db:"interview_id"`
	ShortCode     string       `json:"shortCode" db:"short_code"`
	Status        InviteStatus `json:"status" db:"status"`
	ExpiresAt     time.Time    `json:"expiresAt" db:"expires_at"`
	MaxUses       int          `json:"maxUses" db:"max_uses"`
	UseCount      int          `json:"useCount" db:"use_count"`
	RevokedAt     *time.Time   `json:"revokedAt,omitempty" db:"revoked_at"`
	RevokedReason string       `json:"revokedReason,omitempty" db:"revoked_reason"`
	RevokedBy     string       `json:"revokedBy,omitempty" db:"revoked_by"`
	CreatedAt     time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time    `json:"updatedAt" db:"updated_at"`
}

func (i *InterviewInvite) IsExpiredAt(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

func (i *InterviewInvite) RemainingUses() int {
	if r := i.MaxUses - i.UseCount; r > 0 {
		return r
	}
	return 0
}

// Link renders the public candidate URL for the invite.
func (i *InterviewInvite) Link(publicBaseURL string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/i/" + i.ShortCode
}
