package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

// insertAuditLog appends one row through q, assigning ID and CreatedAt when unset.
func insertAuditLog(ctx context.Context, q querier, entry *models.InterviewAuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	payload, err := marshalPayload(entry.Payload)
	if err != nil {
		return apperrors.NewValidationError("audit payload is not serializable: " + err.Error())
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO interview_audit_logs (id, interview_id, invite_id, session_id, event_type, actor, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.InterviewID, nullString(entry.InviteID), nullString(entry.SessionID),
		string(entry.EventType), entry.Actor, payload, entry.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("insert_audit_log", err)
	}
	return nil
}

func (s *Store) InsertAuditLog(ctx context.Context, entry *models.InterviewAuditLog) error {
	return insertAuditLog(ctx, s.db, entry)
}

// ListAuditLogs returns an interview's events in insertion order.
func (s *Store) ListAuditLogs(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, interview_id, invite_id, session_id, event_type, actor, payload, created_at
		FROM interview_audit_logs
		WHERE interview_id = $1
		ORDER BY seq ASC`, interviewID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list_audit_logs", err)
	}
	defer rows.Close()

	var out []models.InterviewAuditLog
	for rows.Next() {
		var (
			e                   models.InterviewAuditLog
			inviteID, sessionID sql.NullString
			eventType           string
			payload             []byte
		)
		if err := rows.Scan(&e.ID, &e.InterviewID, &inviteID, &sessionID, &eventType, &e.Actor, &payload, &e.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("list_audit_logs", err)
		}
		e.InviteID = stringPtr(inviteID)
		e.SessionID = stringPtr(sessionID)
		e.EventType = models.AuditEventType(eventType)
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, apperrors.NewDatabaseError("list_audit_logs", err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list_audit_logs", err)
	}
	return out, nil
}

func auditEntry(interviewID string, inviteID, sessionID *string, event models.AuditEventType, actor string, at time.Time, payload map[string]interface{}) models.InterviewAuditLog {
	return models.InterviewAuditLog{
		ID:          uuid.New().String(),
		InterviewID: interviewID,
		InviteID:    inviteID,
		SessionID:   sessionID,
		EventType:   event,
		Actor:       actor,
		Payload:     payload,
		CreatedAt:   at,
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
