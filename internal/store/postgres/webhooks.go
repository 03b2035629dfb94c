package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/models"
)

// CreateWebhookConfig registers an endpoint for a group.
func (s *Store) CreateWebhookConfig(ctx context.Context, c *models.WebhookConfig) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO webhook_configs (id, group_id, url, secret, events, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		c.ID, c.GroupID, c.URL, c.Secret, pq.Array(nonNil(c.Events)), c.IsActive,
	).Scan(&c.CreatedAt)
	if err != nil {
		return apperrors.NewDatabaseError("create_webhook_config", err)
	}
	return nil
}

func (s *Store) ListActiveWebhookConfigs(ctx context.Context, groupID string) ([]models.WebhookConfig, error) {
	return listActiveWebhookConfigs(ctx, s.db, groupID, "")
}

// listActiveWebhookConfigs returns the group's active configs, narrowed to
// those subscribed to event when event is set.
func listActiveWebhookConfigs(ctx context.Context, q querier, groupID, event string) ([]models.WebhookConfig, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, group_id, url, secret, events, is_active, created_at
		FROM webhook_configs
		WHERE group_id = $1 AND is_active
		  AND ($2 = '' OR cardinality(events) = 0 OR $2 = ANY(events))
		ORDER BY created_at ASC`, groupID, event)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list_webhook_configs", err)
	}
	defer rows.Close()

	var out []models.WebhookConfig
	for rows.Next() {
		var c models.WebhookConfig
		var events []string
		if err := rows.Scan(&c.ID, &c.GroupID, &c.URL, &c.Secret, pq.Array(&events), &c.IsActive, &c.CreatedAt); err != nil {
			return nil, apperrors.NewDatabaseError("list_webhook_configs", err)
		}
		c.Events = events
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseError("list_webhook_configs", err)
	}
	return out, nil
}

func enqueueDeliveries(ctx context.Context, tx *sql.Tx, iv *models.Interview, event string, payload []byte, now time.Time) (int, error) {
	configs, err := listActiveWebhookConfigs(ctx, tx, iv.GroupID, event)
	if err != nil {
		return 0, err
	}
	for _, c := range configs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO webhook_deliveries (id, webhook_config_id, interview_id, event_type, payload, status,
				attempts, next_retry_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $6, $6)`,
			uuid.New().String(), c.ID, iv.ID, event, payload, now)
		if err != nil {
			return 0, apperrors.NewDatabaseError("enqueue_delivery", err)
		}
	}
	return len(configs), nil
}

// ClaimDueDeliveries locks up to limit pending or retrying deliveries that are
// due at now and pushes their next_retry_at out by lease so concurrent
// dispatchers skip them.
func (s *Store) ClaimDueDeliveries(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.DueDelivery, error) {
	if limit <= 0 {
		limit = 1
	}

	var out []models.DueDelivery
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT d.id, d.webhook_config_id, d.interview_id, d.event_type, d.payload, d.status, d.attempts,
				d.next_retry_at, d.last_error, d.response_status, d.created_at, d.updated_at,
				c.id, c.group_id, c.url, c.secret, c.events, c.is_active, c.created_at
			FROM webhook_deliveries d
			JOIN webhook_configs c ON c.id = d.webhook_config_id
			WHERE d.status IN ('pending', 'retrying') AND d.next_retry_at <= $1
			ORDER BY d.next_retry_at ASC
			FOR UPDATE OF d SKIP LOCKED
			LIMIT $2`, now, limit)
		if err != nil {
			return apperrors.NewDatabaseError("claim_deliveries", err)
		}
		defer rows.Close()

		ids := make([]string, 0, limit)
		for rows.Next() {
			var (
				dd        models.DueDelivery
				status    string
				nextRetry sql.NullTime
				events    []string
			)
			d := &dd.Delivery
			c := &dd.Config
			if err := rows.Scan(&d.ID, &d.WebhookConfigID, &d.InterviewID, &d.EventType, &d.Payload, &status, &d.Attempts,
				&nextRetry, &d.LastError, &d.ResponseStatus, &d.CreatedAt, &d.UpdatedAt,
				&c.ID, &c.GroupID, &c.URL, &c.Secret, pq.Array(&events), &c.IsActive, &c.CreatedAt); err != nil {
				return apperrors.NewDatabaseError("claim_deliveries", err)
			}
			d.Status = models.DeliveryStatus(status)
			d.NextRetryAt = timePtr(nextRetry)
			c.Events = events
			out = append(out, dd)
			ids = append(ids, d.ID)
		}
		if err := rows.Err(); err != nil {
			return apperrors.NewDatabaseError("claim_deliveries", err)
		}
		if len(ids) == 0 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE webhook_deliveries SET next_retry_at = $2, updated_at = $3
			WHERE id = ANY($1)`, pq.Array(ids), now.Add(lease), now); err != nil {
			return apperrors.NewDatabaseError("claim_deliveries", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeliveryAttempt is the outcome of sending one delivery.
type DeliveryAttempt struct {
	ID             string
	Status         models.DeliveryStatus
	Attempts       int
	NextRetryAt    *time.Time
	LastError      string
	ResponseStatus int
	At             time.Time
}

func (s *Store) RecordDeliveryAttempt(ctx context.Context, a DeliveryAttempt) error {
	var deliveredAt *time.Time
	if a.Status == models.DeliveryDelivered {
		deliveredAt = &a.At
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE webhook_deliveries SET
			status = $2, attempts = $3, next_retry_at = $4, last_error = $5,
			response_status = $6, delivered_at = COALESCE($7, delivered_at), updated_at = $8
		WHERE id = $1`,
		a.ID, string(a.Status), a.Attempts, nullTime(a.NextRetryAt), a.LastError, a.ResponseStatus,
		nullTime(deliveredAt), a.At)
	if err != nil {
		return apperrors.NewDatabaseError("record_delivery_attempt", err)
	}
	return nil
}

// StampResultWebhook records the latest forward of an interview's result.
func (s *Store) StampResultWebhook(ctx context.Context, interviewID string, sentAt time.Time, response string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE interview_results SET webhook_sent_at = $2, webhook_response = $3, updated_at = $2
		WHERE interview_id = $1`, interviewID, sentAt, response)
	if err != nil {
		return apperrors.NewDatabaseError("stamp_result_webhook", err)
	}
	return nil
}
