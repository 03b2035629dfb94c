package deliverydispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/webhooks"
)

const (
	TaskType  = "webhook.delivery.dispatch"
	ConfigKey = "webhook-delivery-dispatch"

	maxLimit = 500
)

type Dispatcher interface {
	DispatchDue(ctx context.Context, now time.Time, limit int) (*webhooks.DispatchSummary, error)
}

type Handler struct {
	config     *Config
	dispatcher Dispatcher
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
	now        func() time.Time
}

func NewHandler(config *Config, dispatcher Dispatcher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		dispatcher: dispatcher,
		errors:     apperrors.NewErrorHandler(l),
		logger:     l,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() { metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds()) }()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.ErrCodeValidationFailed)).Inc()
		h.errors.HandleJobError(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	cmd, err := client.NewCompleteJobCommand().JobKey(job.Key).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{"error": err.Error()})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) limit(requested int) int {
	switch {
	case requested <= 0:
		return h.config.BatchSize
	case requested > maxLimit:
		return maxLimit
	}
	return requested
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	summary, err := h.dispatcher.DispatchDue(ctx, h.now(), h.limit(input.Limit))
	if err != nil {
		return nil, err
	}
	if summary.Claimed > 0 {
		h.logger.Info("deliveries dispatched", map[string]interface{}{
			"claimed":   summary.Claimed,
			"delivered": summary.Delivered,
			"retrying":  summary.Retrying,
			"failed":    summary.Failed,
		})
	}
	return &Output{
		Claimed:   summary.Claimed,
		Delivered: summary.Delivered,
		Retrying:  summary.Retrying,
		Failed:    summary.Failed,
	}, nil
}
