package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

const interviewColumns = `id, group_id, job_id, applicant_id, agent_id, guide_id, configuration_id, status, token,
	orchestrator_interview_id, score, summary, recommendation, strengths, areas_for_improvement,
	webhook_received_at, scheduled_at, started_at, completed_at, created_at, updated_at`

func scanInterview(row interface{ Scan(...interface{}) error }) (*models.Interview, error) {
	var (
		iv                                        models.Interview
		guideID, configurationID                  sql.NullString
		status                                    string
		score                                     sql.NullFloat64
		received, scheduled, started, completedAt sql.NullTime
		strengths, areas                          []string
	)
	err := row.Scan(&iv.ID, &iv.GroupID, &iv.JobID, &iv.ApplicantID, &iv.AgentID, &guideID, &configurationID,
		&status, &iv.Token, &iv.OrchestratorInterviewID, &score, &iv.Summary, &iv.Recommendation,
		pq.Array(&strengths), pq.Array(&areas), &received, &scheduled, &started, &completedAt,
		&iv.CreatedAt, &iv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	iv.GuideID = stringPtr(guideID)
	iv.ConfigurationID = stringPtr(configurationID)
	iv.Status = models.InterviewStatus(status)
	iv.Score = floatPtr(score)
	iv.Strengths = strengths
	iv.AreasForImprovement = areas
	iv.WebhookReceivedAt = timePtr(received)
	iv.ScheduledAt = timePtr(scheduled)
	iv.StartedAt = timePtr(started)
	iv.CompletedAt = timePtr(completedAt)
	return &iv, nil
}

// CreateInterviewWithInvite persists a freshly created interview, its first
// invite and the invite_created audit row in one transaction.
func (s *Store) CreateInterviewWithInvite(ctx context.Context, iv *models.Interview, inv *models.InterviewInvite, actor string) ([]models.InterviewAuditLog, error) {
	now := time.Now().UTC()
	if iv.ID == "" {
		iv.ID = uuid.New().String()
	}
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	inv.InterviewID = iv.ID
	iv.CreatedAt, iv.UpdatedAt = now, now
	inv.CreatedAt, inv.UpdatedAt = now, now

	event := auditEntry(iv.ID, &inv.ID, nil, models.AuditInviteCreated, actor, now, map[string]interface{}{
		"shortCode": inv.ShortCode,
		"expiresAt": inv.ExpiresAt,
		"maxUses":   inv.MaxUses,
	})

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO interviews (id, group_id, job_id, applicant_id, agent_id, guide_id, configuration_id,
				status, token, orchestrator_interview_id, scheduled_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`,
			iv.ID, iv.GroupID, iv.JobID, iv.ApplicantID, iv.AgentID, nullString(iv.GuideID), nullString(iv.ConfigurationID),
			string(iv.Status), iv.Token, iv.OrchestratorInterviewID, nullTime(iv.ScheduledAt), now,
		)
		if err != nil {
			return apperrors.NewDatabaseError("insert_interview", err)
		}
		if err := insertInvite(ctx, tx, inv); err != nil {
			return err
		}
		return insertAuditLog(ctx, tx, &event)
	})
	if err != nil {
		return nil, err
	}
	return []models.InterviewAuditLog{event}, nil
}

func (s *Store) GetInterview(ctx context.Context, id string) (*models.Interview, error) {
	iv, err := scanInterview(s.db.QueryRowContext(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id))
	if err != nil {
		return nil, notFoundOr(err, "Interview", fmt.Sprintf("interviewId: %s", id), "get_interview")
	}
	return iv, nil
}

func (s *Store) GetInterviewByOrchestratorID(ctx context.Context, orchestratorID string) (*models.Interview, error) {
	iv, err := scanInterview(s.db.QueryRowContext(ctx,
		`SELECT `+interviewColumns+` FROM interviews WHERE orchestrator_interview_id = $1 AND orchestrator_interview_id <> ''`,
		orchestratorID))
	if err != nil {
		return nil, notFoundOr(err, "Interview", fmt.Sprintf("orchestratorInterviewId: %s", orchestratorID), "get_interview_by_orchestrator_id")
	}
	return iv, nil
}

// UpdateInterviewStatus moves an interview from one status to another and
// reports whether the row was still in the expected status.
func (s *Store) UpdateInterviewStatus(ctx context.Context, id string, from, to models.InterviewStatus, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE interviews SET
			status = $3,
			started_at = CASE WHEN $3 = 'in_progress' THEN COALESCE(started_at, $4) ELSE started_at END,
			completed_at = CASE WHEN $3 = 'completed' THEN COALESCE(completed_at, $4) ELSE completed_at END,
			updated_at = $4
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), now)
	if err != nil {
		return false, apperrors.NewDatabaseError("update_interview_status", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ResponseRecord is one candidate turn submitted through an authenticated session.
type ResponseRecord struct {
	InterviewID string
	InviteID    string
	SessionID   string
	Payload     map[string]interface{}
	At          time.Time
}

// RecordResponse moves a pending interview to in_progress on the first
// response and always records response_submitted.
func (s *Store) RecordResponse(ctx context.Context, r ResponseRecord) (bool, []models.InterviewAuditLog, error) {
	var (
		started bool
		events  []models.InterviewAuditLog
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE interviews SET status = 'in_progress', started_at = COALESCE(started_at, $2), updated_at = $2
			WHERE id = $1 AND status = 'pending'`, r.InterviewID, r.At)
		if err != nil {
			return apperrors.NewDatabaseError("start_interview", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			started = true
			e := auditEntry(r.InterviewID, strPtr(r.InviteID), strPtr(r.SessionID), models.AuditInterviewStarted, "candidate", r.At, nil)
			if err := insertAuditLog(ctx, tx, &e); err != nil {
				return err
			}
			events = append(events, e)
		}

		e := auditEntry(r.InterviewID, strPtr(r.InviteID), strPtr(r.SessionID), models.AuditResponseSubmitted, "candidate", r.At, r.Payload)
		if err := insertAuditLog(ctx, tx, &e); err != nil {
			return err
		}
		events = append(events, e)
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return started, events, nil
}

// WebhookApply carries an authenticated completion callback.
type WebhookApply struct {
	InterviewID   string
	Outcome       models.Outcome
	TranscriptURL string
	ReceivedAt    time.Time
	Actor         string
	// DeliveryEvent and DeliveryPayload are fanned out to the group's webhook
	// configs when the stored outcome changes. Empty DeliveryEvent skips fan-out.
	DeliveryEvent   string
	DeliveryPayload []byte
}

type WebhookApplyResult struct {
	Interview  *models.Interview
	Changed    bool
	Events     []models.InterviewAuditLog
	Deliveries int
}

// ApplyWebhookUpdate overwrites the interview's outcome with the callback's
// values and stamps webhook_received_at. Audit rows and outbound deliveries
// are only produced when the stored outcome actually changed.
func (s *Store) ApplyWebhookUpdate(ctx context.Context, w WebhookApply) (*WebhookApplyResult, error) {
	result := &WebhookApplyResult{}
	o := w.Outcome

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := scanInterview(tx.QueryRowContext(ctx,
			`SELECT `+interviewColumns+` FROM interviews WHERE id = $1 FOR UPDATE`, w.InterviewID))
		if err != nil {
			return notFoundOr(err, "Interview", fmt.Sprintf("interviewId: %s", w.InterviewID), "apply_webhook")
		}
		previous := current.Status
		result.Changed = !current.Outcome().Equal(o)

		updated, err := scanInterview(tx.QueryRowContext(ctx, `
			UPDATE interviews SET
				status = $2,
				score = $3,
				summary = $4,
				recommendation = $5,
				strengths = $6,
				areas_for_improvement = $7,
				webhook_received_at = $8,
				started_at = CASE WHEN $2 IN ('in_progress', 'completed') THEN COALESCE(started_at, $8) ELSE started_at END,
				completed_at = CASE WHEN $2 = 'completed' THEN COALESCE(completed_at, $8) ELSE completed_at END,
				updated_at = $8
			WHERE id = $1
			RETURNING `+interviewColumns,
			w.InterviewID, string(o.Status), nullFloat(o.Score), o.Summary, o.Recommendation,
			pq.Array(nonNil(o.Strengths)), pq.Array(nonNil(o.AreasForImprovement)), w.ReceivedAt,
		))
		if err != nil {
			return apperrors.NewDatabaseError("apply_webhook", err)
		}
		result.Interview = updated

		if o.Status == models.InterviewCompleted {
			write := result.Changed
			if !write {
				if write, err = resultStale(ctx, tx, w.InterviewID, w.TranscriptURL); err != nil {
					return err
				}
			}
			if write {
				if err := upsertResult(ctx, tx, updated, w.TranscriptURL, w.ReceivedAt); err != nil {
					return err
				}
			}
		}

		if !result.Changed {
			return nil
		}

		if event, ok := transitionEvent(previous, o.Status); ok {
			e := auditEntry(w.InterviewID, nil, nil, event, w.Actor, w.ReceivedAt, map[string]interface{}{
				"previousStatus": string(previous),
				"status":         string(o.Status),
				"score":          o.Score,
				"recommendation": o.Recommendation,
			})
			if err := insertAuditLog(ctx, tx, &e); err != nil {
				return err
			}
			result.Events = append(result.Events, e)
		}

		if w.DeliveryEvent != "" {
			n, err := enqueueDeliveries(ctx, tx, updated, w.DeliveryEvent, w.DeliveryPayload, w.ReceivedAt)
			if err != nil {
				return err
			}
			result.Deliveries = n
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// transitionEvent picks the audit event recorded for a webhook-driven change.
func transitionEvent(from, to models.InterviewStatus) (models.AuditEventType, bool) {
	switch {
	case to.IsTerminal():
		return models.AuditInterviewCompleted, true
	case to == models.InterviewInProgress && from == models.InterviewPending:
		return models.AuditInterviewStarted, true
	}
	return "", false
}

// resultStale reports whether an unchanged outcome still needs its result row
// written: the row is missing or the callback carries a new transcript.
func resultStale(ctx context.Context, q querier, interviewID, transcriptURL string) (bool, error) {
	var stored string
	err := q.QueryRowContext(ctx,
		`SELECT transcript_url FROM interview_results WHERE interview_id = $1`, interviewID,
	).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return true, nil
	}
	if err != nil {
		return false, apperrors.NewDatabaseError("get_interview_result", err)
	}
	return transcriptURL != "" && transcriptURL != stored, nil
}

func upsertResult(ctx context.Context, q querier, iv *models.Interview, transcriptURL string, now time.Time) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO interview_results (id, interview_id, status, score, recommendation, summary, strengths,
			areas_for_improvement, transcript_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (interview_id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			recommendation = EXCLUDED.recommendation,
			summary = EXCLUDED.summary,
			strengths = EXCLUDED.strengths,
			areas_for_improvement = EXCLUDED.areas_for_improvement,
			transcript_url = CASE WHEN EXCLUDED.transcript_url = '' THEN interview_results.transcript_url ELSE EXCLUDED.transcript_url END,
			updated_at = EXCLUDED.updated_at`,
		uuid.New().String(), iv.ID, string(iv.Status), nullFloat(iv.Score), iv.Recommendation, iv.Summary,
		pq.Array(nonNil(iv.Strengths)), pq.Array(nonNil(iv.AreasForImprovement)), transcriptURL, now,
	)
	if err != nil {
		return apperrors.NewDatabaseError("upsert_interview_result", err)
	}
	return nil
}

func (s *Store) GetInterviewResult(ctx context.Context, interviewID string) (*models.InterviewResult, error) {
	var (
		r                models.InterviewResult
		score            sql.NullFloat64
		sentAt           sql.NullTime
		strengths, areas []string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, interview_id, status, score, recommendation, summary, strengths, areas_for_improvement,
			transcript_url, webhook_sent_at, webhook_response, created_at, updated_at
		FROM interview_results WHERE interview_id = $1`, interviewID,
	).Scan(&r.ID, &r.InterviewID, &r.Status, &score, &r.Recommendation, &r.Summary, pq.Array(&strengths), pq.Array(&areas),
		&r.TranscriptURL, &sentAt, &r.WebhookResponse, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, "InterviewResult", fmt.Sprintf("interviewId: %s", interviewID), "get_interview_result")
	}
	r.Score = floatPtr(score)
	r.WebhookSentAt = timePtr(sentAt)
	r.Strengths = strengths
	r.AreasForImprovement = areas
	return &r, nil
}
