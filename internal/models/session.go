package models

import "time"

// CandidateSession binds one issued session token (by jti) to an invite.
// At most one session per invite is active.
type CandidateSession struct {
	ID            string     `json:"id" db:"id"`
	InviteID      string     `json:"inviteId" db:"invite_id"`
	InterviewID   string     `json:"interviewId" db:"interview_id"`
	JTI           string     `json:"jti" db:"jti"`
	IsActive      bool       `json:"isActive" db:"is_active"`
	ExpiresAt     time.Time  `json:"expiresAt" db:"expires_at"`
	IPAddress     string     `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent     string     `json:"userAgent,omitempty" db:"user_agent"`
	CreatedAt     time.Time  `json:"createdAt" db:"created_at"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty" db:"deactivated_at"`
}

func (s *CandidateSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
