package models

import "time"

type AuditEventType string

const (
	AuditInviteCreated      AuditEventType = "invite_created"
	AuditInviteRedeemed     AuditEventType = "invite_redeemed"
	AuditSessionCreated     AuditEventType = "session_created"
	AuditInterviewStarted   AuditEventType = "interview_started"
	AuditResponseSubmitted  AuditEventType = "response_submitted"
	AuditInterviewCompleted AuditEventType = "interview_completed"
	AuditInviteRevoked      AuditEventType = "invite_revoked"
	AuditSessionExpired     AuditEventType = "session_expired"
)

// InterviewAuditLog rows are append-only.
type InterviewAuditLog struct {
	ID          string                 `json:"id" db:"id"`
	InterviewID string                 `json:"interviewId" db:"interview_id"`
	InviteID    *string                `json:"inviteId,omitempty" db:"invite_id"`
	SessionID   *string                `json:"sessionId,omitempty" db:"session_id"`
	EventType   AuditEventType         `json:"eventType" db:"event_type"`
	Actor       string                 `json:"actor,omitempty" db:"actor"`
	Payload     map[string]interface{} `json:"payload,omitempty" db:"payload"`
	CreatedAt   time.Time              `json:"createdAt" db:"created_at"`
}
