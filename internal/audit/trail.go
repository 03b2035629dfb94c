// Package audit records interview lifecycle events. Postgres is the ledger of
// record; an optional search mirror receives a copy of every event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/models"
)

type Store interface {
	InsertAuditLog(ctx context.Context, entry *models.InterviewAuditLog) error
	ListAuditLogs(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error)
}

// Mirror receives a copy of each recorded event. Failures never affect the ledger.
type Mirror interface {
	Index(ctx context.Context, event models.InterviewAuditLog) error
}

type Trail struct {
	store  Store
	mirror Mirror
	logger logger.Logger
}

// NewTrail builds a trail. mirror may be nil.
func NewTrail(store Store, mirror Mirror, log logger.Logger) *Trail {
	return &Trail{
		store:  store,
		mirror: mirror,
		logger: log.WithFields(map[string]interface{}{"component": "audit_trail"}),
	}
}

// Record appends one event outside any transaction.
func (t *Trail) Record(ctx context.Context, event *models.InterviewAuditLog) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := t.store.InsertAuditLog(ctx, event); err != nil {
		t.logger.Error("failed to append audit event", map[string]interface{}{
			"interviewId": event.InterviewID,
			"eventType":   string(event.EventType),
			"error":       err.Error(),
		})
		return err
	}
	t.Published(ctx, *event)
	return nil
}

// Published handles events a store transaction has already committed.
func (t *Trail) Published(ctx context.Context, events ...models.InterviewAuditLog) {
	for _, e := range events {
		metrics.AuditEvents.WithLabelValues(string(e.EventType)).Inc()
		t.logger.Info("audit event", map[string]interface{}{
			"interviewId": e.InterviewID,
			"eventType":   string(e.EventType),
			"actor":       e.Actor,
		})
		if t.mirror == nil {
			continue
		}
		if err := t.mirror.Index(ctx, e); err != nil {
			t.logger.Warn("audit mirror failed", map[string]interface{}{
				"auditId": e.ID,
				"error":   err.Error(),
			})
		}
	}
}

// List returns an interview's events in the order they were recorded.
func (t *Trail) List(ctx context.Context, interviewID string) ([]models.InterviewAuditLog, error) {
	events, err := t.store.ListAuditLogs(ctx, interviewID)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.InterviewAuditLog{}
	}
	return events, nil
}
