package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

const inviteColumns = `id, interview_id, short_code, status, expires_at, max_uses, use_count,
	revoked_at, revoked_reason, revoked_by, created_at, updated_at`

func scanInvite(row interface{ Scan(...interface{}) error }) (*models.InterviewInvite, error) {
	var (
		inv       models.InterviewInvite
		status    string
		revokedAt sql.NullTime
	)
	if err := row.Scan(&inv.ID, &inv.InterviewID, &inv.ShortCode, &status, &inv.ExpiresAt, &inv.MaxUses, &inv.UseCount,
		&revokedAt, &inv.RevokedReason, &inv.RevokedBy, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.Status = models.InviteStatus(status)
	inv.RevokedAt = timePtr(revokedAt)
	return &inv, nil
}

func insertInvite(ctx context.Context, q querier, inv *models.InterviewInvite) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	if inv.Status == "" {
		inv.Status = models.InviteActive
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO interview_invites (id, interview_id, short_code, status, expires_at, max_uses, use_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		inv.ID, inv.InterviewID, inv.ShortCode, string(inv.Status), inv.ExpiresAt, inv.MaxUses, inv.UseCount, inv.CreatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseError("insert_invite", err)
	}
	return nil
}

func (s *Store) GetInviteByShortCode(ctx context.Context, shortCode string) (*models.InterviewInvite, error) {
	inv, err := scanInvite(s.db.QueryRowContext(ctx,
		`SELECT `+inviteColumns+` FROM interview_invites WHERE short_code = $1`, shortCode))
	if err != nil {
		return nil, notFoundOr(err, "InterviewInvite", fmt.Sprintf("shortCode: %s", shortCode), "get_invite")
	}
	return inv, nil
}

// GetCurrentInvite returns the interview's active invite, or its newest one
// when none is active.
func (s *Store) GetCurrentInvite(ctx context.Context, interviewID string) (*models.InterviewInvite, error) {
	inv, err := scanInvite(s.db.QueryRowContext(ctx, `
		SELECT `+inviteColumns+` FROM interview_invites
		WHERE interview_id = $1
		ORDER BY (status = 'active') DESC, created_at DESC
		LIMIT 1`, interviewID))
	if err != nil {
		return nil, notFoundOr(err, "InterviewInvite", fmt.Sprintf("interviewId: %s", interviewID), "get_current_invite")
	}
	return inv, nil
}

// CountActiveInvites is used by tooling to check the single-active invariant.
func (s *Store) CountActiveInvites(ctx context.Context, interviewID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interview_invites WHERE interview_id = $1 AND status = 'active'`, interviewID).Scan(&n)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count_active_invites", err)
	}
	return n, nil
}

// InviteReplacement describes a refresh: the current active invite is revoked
// and next becomes the only active invite.
type InviteReplacement struct {
	InterviewID string
	Next        *models.InterviewInvite
	Reason      string
	Actor       string
	At          time.Time
}

// ReplaceInvite revokes the active invite, deactivates its sessions, inserts
// the replacement and resets the interview to pending in one transaction.
func (s *Store) ReplaceInvite(ctx context.Context, r InviteReplacement) (*models.InterviewInvite, []models.InterviewAuditLog, error) {
	var (
		revoked *models.InterviewInvite
		events  []models.InterviewAuditLog
	)
	next := r.Next
	next.InterviewID = r.InterviewID
	next.Status = models.InviteActive
	next.CreatedAt, next.UpdatedAt = r.At, r.At

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := revokeActive(ctx, tx, r.InterviewID, r.Reason, r.Actor, r.At)
		if err != nil {
			return err
		}
		if prev != nil {
			revoked = prev
			e := auditEntry(r.InterviewID, &prev.ID, nil, models.AuditInviteRevoked, r.Actor, r.At, map[string]interface{}{
				"shortCode": prev.ShortCode,
				"reason":    r.Reason,
			})
			if err := insertAuditLog(ctx, tx, &e); err != nil {
				return err
			}
			events = append(events, e)
		}

		if err := insertInvite(ctx, tx, next); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE interviews SET status = 'pending', started_at = NULL, updated_at = $2
			WHERE id = $1`, r.InterviewID, r.At); err != nil {
			return apperrors.NewDatabaseError("reset_interview", err)
		}

		e := auditEntry(r.InterviewID, &next.ID, nil, models.AuditInviteCreated, r.Actor, r.At, map[string]interface{}{
			"shortCode": next.ShortCode,
			"expiresAt": next.ExpiresAt,
			"maxUses":   next.MaxUses,
			"refreshed": true,
		})
		if err := insertAuditLog(ctx, tx, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return revoked, events, nil
}

// RevokeActiveInvite revokes the interview's active invite. It returns a
// not-found error when the interview has no active invite.
func (s *Store) RevokeActiveInvite(ctx context.Context, interviewID, reason, actor string, at time.Time) (*models.InterviewInvite, []models.InterviewAuditLog, error) {
	var (
		revoked *models.InterviewInvite
		events  []models.InterviewAuditLog
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := revokeActive(ctx, tx, interviewID, reason, actor, at)
		if err != nil {
			return err
		}
		if prev == nil {
			return apperrors.NewResourceNotFoundError("InterviewInvite", fmt.Sprintf("no active invite for interviewId: %s", interviewID))
		}
		revoked = prev
		e := auditEntry(interviewID, &prev.ID, nil, models.AuditInviteRevoked, actor, at, map[string]interface{}{
			"shortCode": prev.ShortCode,
			"reason":    reason,
		})
		if err := insertAuditLog(ctx, tx, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return revoked, events, nil
}

// revokeActive flips the active invite (if any) to revoked and deactivates its
// sessions. It returns nil when no invite was active.
func revokeActive(ctx context.Context, q querier, interviewID, reason, actor string, at time.Time) (*models.InterviewInvite, error) {
	prev, err := scanInvite(q.QueryRowContext(ctx, `
		UPDATE interview_invites SET status = 'revoked', revoked_at = $2, revoked_reason = $3, revoked_by = $4, updated_at = $2
		WHERE interview_id = $1 AND status = 'active'
		RETURNING `+inviteColumns, interviewID, at, reason, actor))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("revoke_invite", err)
	}
	if _, err := deactivateSessions(ctx, q, prev.ID, at); err != nil {
		return nil, err
	}
	return prev, nil
}

// MarkInviteExpired flips a still-active invite to expired.
func (s *Store) MarkInviteExpired(ctx context.Context, inviteID string, at time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_invites SET status = 'expired', updated_at = $2
		WHERE id = $1 AND status = 'active'`, inviteID, at)
	if err != nil {
		return false, apperrors.NewDatabaseError("expire_invite", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ExpireStaleInvites expires every active invite whose deadline has passed.
func (s *Store) ExpireStaleInvites(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interview_invites SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND expires_at < $1`, now)
	if err != nil {
		return 0, apperrors.NewDatabaseError("expire_stale_invites", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
