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

const sessionColumns = `id, invite_id, interview_id, jti, is_active, expires_at, ip_address, user_agent,
	created_at, deactivated_at`

func scanSession(row interface{ Scan(...interface{}) error }) (*models.CandidateSession, error) {
	var (
		cs          models.CandidateSession
		deactivated sql.NullTime
	)
	if err := row.Scan(&cs.ID, &cs.InviteID, &cs.InterviewID, &cs.JTI, &cs.IsActive, &cs.ExpiresAt,
		&cs.IPAddress, &cs.UserAgent, &cs.CreatedAt, &deactivated); err != nil {
		return nil, err
	}
	cs.DeactivatedAt = timePtr(deactivated)
	return &cs, nil
}

// Redemption is one attempt to exchange a short code for a session.
type Redemption struct {
	ShortCode string
	Now       time.Time
	// Session carries the new JTI, expiry and client details. IDs are filled in
	// on success.
	Session *models.CandidateSession
}

// RedemptionResult reports the invite as it stands after the attempt. When
// Redeemed is false no row was changed and Invite (nil if the code is unknown)
// is returned so the caller can say why.
type RedemptionResult struct {
	Invite   *models.InterviewInvite
	Redeemed bool
	Session  *models.CandidateSession
	// Superseded counts the sessions this redemption deactivated.
	Superseded int64
	Events     []models.InterviewAuditLog
}

// RedeemInvite claims one use of an invite with a single conditional UPDATE,
// so concurrent attempts on the same code cannot over-count. On success the
// invite's previous sessions are deactivated and the new session becomes the
// only active one, all in the same transaction.
func (s *Store) RedeemInvite(ctx context.Context, r Redemption) (*RedemptionResult, error) {
	result := &RedemptionResult{}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := scanInvite(tx.QueryRowContext(ctx, `
			UPDATE interview_invites SET
				use_count = use_count + 1,
				status = CASE WHEN use_count + 1 >= max_uses THEN 'consumed' ELSE 'active' END,
				updated_at = $2
			WHERE short_code = $1 AND status = 'active' AND expires_at >= $2 AND use_count < max_uses
			RETURNING `+inviteColumns, r.ShortCode, r.Now))
		if errors.Is(err, sql.ErrNoRows) {
			current, err := scanInvite(tx.QueryRowContext(ctx,
				`SELECT `+inviteColumns+` FROM interview_invites WHERE short_code = $1`, r.ShortCode))
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return apperrors.NewDatabaseError("redeem_invite", err)
			}
			result.Invite = current
			return nil
		}
		if err != nil {
			return apperrors.NewDatabaseError("redeem_invite", err)
		}
		result.Invite = inv

		superseded, err := deactivateSessions(ctx, tx, inv.ID, r.Now)
		if err != nil {
			return err
		}
		result.Superseded = superseded

		cs := r.Session
		if cs.ID == "" {
			cs.ID = uuid.New().String()
		}
		cs.InviteID = inv.ID
		cs.InterviewID = inv.InterviewID
		cs.IsActive = true
		cs.CreatedAt = r.Now
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO candidate_sessions (id, invite_id, interview_id, jti, is_active, expires_at, ip_address, user_agent, created_at)
			VALUES ($1, $2, $3, $4, TRUE, $5, $6, $7, $8)`,
			cs.ID, cs.InviteID, cs.InterviewID, cs.JTI, cs.ExpiresAt, cs.IPAddress, cs.UserAgent, cs.CreatedAt); err != nil {
			return apperrors.NewDatabaseError("insert_session", err)
		}
		result.Session = cs

		redeemed := auditEntry(inv.InterviewID, &inv.ID, nil, models.AuditInviteRedeemed, "candidate", r.Now, map[string]interface{}{
			"useCount":  inv.UseCount,
			"maxUses":   inv.MaxUses,
			"status":    string(inv.Status),
			"ipAddress": cs.IPAddress,
		})
		created := auditEntry(inv.InterviewID, &inv.ID, &cs.ID, models.AuditSessionCreated, "candidate", r.Now, map[string]interface{}{
			"expiresAt":  cs.ExpiresAt,
			"superseded": superseded,
			"userAgent":  cs.UserAgent,
		})
		for _, e := range []*models.InterviewAuditLog{&redeemed, &created} {
			if err := insertAuditLog(ctx, tx, e); err != nil {
				return err
			}
		}
		result.Events = []models.InterviewAuditLog{redeemed, created}
		result.Redeemed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func deactivateSessions(ctx context.Context, q querier, inviteID string, at time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE candidate_sessions SET is_active = FALSE, deactivated_at = $2
		WHERE invite_id = $1 AND is_active`, inviteID, at)
	if err != nil {
		return 0, apperrors.NewDatabaseError("deactivate_sessions", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (s *Store) GetSessionByJTI(ctx context.Context, jti string) (*models.CandidateSession, error) {
	cs, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM candidate_sessions WHERE jti = $1`, jti))
	if err != nil {
		return nil, notFoundOr(err, "CandidateSession", fmt.Sprintf("jti: %s", jti), "get_session")
	}
	return cs, nil
}

// CountActiveSessions is used by tooling to check the single-active invariant.
func (s *Store) CountActiveSessions(ctx context.Context, inviteID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM candidate_sessions WHERE invite_id = $1 AND is_active`, inviteID).Scan(&n)
	if err != nil {
		return 0, apperrors.NewDatabaseError("count_active_sessions", err)
	}
	return n, nil
}

// ExpireSession deactivates a session that outlived its expiry and records
// session_expired. Nothing is written if the session was already inactive.
func (s *Store) ExpireSession(ctx context.Context, cs *models.CandidateSession, at time.Time) ([]models.InterviewAuditLog, error) {
	var events []models.InterviewAuditLog
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE candidate_sessions SET is_active = FALSE, deactivated_at = $2
			WHERE id = $1 AND is_active`, cs.ID, at)
		if err != nil {
			return apperrors.NewDatabaseError("expire_session", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		e := auditEntry(cs.InterviewID, &cs.InviteID, &cs.ID, models.AuditSessionExpired, "system", at, map[string]interface{}{
			"expiresAt": cs.ExpiresAt,
		})
		if err := insertAuditLog(ctx, tx, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	cs.IsActive = false
	cs.DeactivatedAt = &at
	return events, nil
}
