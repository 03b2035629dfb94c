package webhooks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	commonhttp "interview-sync/internal/common/http"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/models"
	"interview-sync/internal/store/postgres"
)

const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
	HeaderEvent     = "X-Webhook-Event"
	HeaderDelivery  = "X-Webhook-Delivery"

	maxResponseSnippet = 1024
)

type DeliveryStore interface {
	ClaimDueDeliveries(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.DueDelivery, error)
	RecordDeliveryAttempt(ctx context.Context, a postgres.DeliveryAttempt) error
	StampResultWebhook(ctx context.Context, interviewID string, sentAt time.Time, response string) error
}

type DispatcherConfig struct {
	MaxAttempts    int
	BaseBackoff    time.Duration
	MaxBackoff     time.Duration
	RequestTimeout time.Duration
	// Lease hides claimed rows from other dispatchers while a batch is sent.
	Lease time.Duration
}

type DispatchSummary struct {
	Claimed   int `json:"claimed"`
	Delivered int `json:"delivered"`
	Retrying  int `json:"retrying"`
	Failed    int `json:"failed"`
}

// Dispatcher forwards queued interview results to group endpoints with
// at-least-once semantics.
type Dispatcher struct {
	store  DeliveryStore
	client *commonhttp.Client
	config DispatcherConfig
	logger logger.Logger
}

func NewDispatcher(store DeliveryStore, client *commonhttp.Client, cfg DispatcherConfig, log logger.Logger) *Dispatcher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	return &Dispatcher{
		store:  store,
		client: client,
		config: cfg,
		logger: log.WithFields(map[string]interface{}{"component": "webhook_dispatcher"}),
	}
}

// Backoff returns the wait before retry number attempt (1-based):
// base * 2^(attempt-1), capped at MaxBackoff.
func (d *Dispatcher) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	wait := d.config.BaseBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if d.config.MaxBackoff > 0 && wait >= d.config.MaxBackoff {
			return d.config.MaxBackoff
		}
	}
	if d.config.MaxBackoff > 0 && wait > d.config.MaxBackoff {
		return d.config.MaxBackoff
	}
	return wait
}

// DispatchDue sends up to limit deliveries that are due at now.
func (d *Dispatcher) DispatchDue(ctx context.Context, now time.Time, limit int) (*DispatchSummary, error) {
	due, err := d.store.ClaimDueDeliveries(ctx, now, limit, d.config.Lease)
	if err != nil {
		return nil, err
	}

	summary := &DispatchSummary{Claimed: len(due)}
	for _, item := range due {
		attempt := d.send(ctx, item, now)
		if err := d.store.RecordDeliveryAttempt(ctx, attempt); err != nil {
			return summary, err
		}
		metrics.WebhookDeliveries.WithLabelValues(string(attempt.Status)).Inc()

		switch attempt.Status {
		case models.DeliveryDelivered:
			summary.Delivered++
		case models.DeliveryRetrying:
			summary.Retrying++
		case models.DeliveryFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

func (d *Dispatcher) send(ctx context.Context, item models.DueDelivery, now time.Time) postgres.DeliveryAttempt {
	delivery := item.Delivery
	attempt := postgres.DeliveryAttempt{
		ID:       delivery.ID,
		Attempts: delivery.Attempts + 1,
		At:       now,
	}

	status, snippet, err := d.post(ctx, item, now)
	attempt.ResponseStatus = status

	if err == nil {
		attempt.Status = models.DeliveryDelivered
		response := fmt.Sprintf("%d %s", status, snippet)
		if err := d.store.StampResultWebhook(ctx, delivery.InterviewID, now, response); err != nil {
			d.logger.Warn("failed to stamp interview result", map[string]interface{}{
				"interviewId": delivery.InterviewID,
				"error":       err.Error(),
			})
		}
		return attempt
	}

	attempt.LastError = err.Error()
	if attempt.Attempts >= d.config.MaxAttempts {
		attempt.Status = models.DeliveryFailed
		d.logger.Error("webhook delivery gave up", map[string]interface{}{
			"deliveryId": delivery.ID,
			"attempts":   attempt.Attempts,
			"error":      err.Error(),
		})
		return attempt
	}

	next := now.Add(d.Backoff(attempt.Attempts))
	attempt.Status = models.DeliveryRetrying
	attempt.NextRetryAt = &next
	d.logger.Warn("webhook delivery failed, will retry", map[string]interface{}{
		"deliveryId":  delivery.ID,
		"attempts":    attempt.Attempts,
		"nextRetryAt": next,
		"error":       err.Error(),
	})
	return attempt
}

func (d *Dispatcher) post(ctx context.Context, item models.DueDelivery, now time.Time) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, item.Config.URL, bytes.NewReader(item.Delivery.Payload))
	if err != nil {
		return 0, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, item.Delivery.EventType)
	req.Header.Set(HeaderDelivery, item.Delivery.ID)
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(now.Unix(), 10))
	if item.Config.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(item.Config.Secret, item.Delivery.Payload))
	}

	resp, cancel, err := d.client.Do(ctx, req, d.config.RequestTimeout)
	defer cancel()
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSnippet))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, string(body), fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return resp.StatusCode, string(body), nil
}
