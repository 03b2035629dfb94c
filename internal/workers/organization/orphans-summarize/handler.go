package orphanssummarize

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
	"interview-sync/internal/models"
)

const (
	TaskType  = "org.orphans.summarize"
	ConfigKey = "org-orphans-summarize"
)

type Reconciler interface {
	Summarize(ctx context.Context, groupID string, known []string) (*models.OrphanedEntitySummary, error)
}

type Handler struct {
	config     *Config
	reconciler Reconciler
	errors     *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, reconciler Reconciler, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		reconciler: reconciler,
		errors:     apperrors.NewErrorHandler(l),
		logger:     l,
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

// execute reports orphans only; repair happens elsewhere.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	summary, err := h.reconciler.Summarize(ctx, input.GroupID, input.KnownOrganizationIDs)
	if err != nil {
		return nil, err
	}
	return &Output{Summary: summary, Total: summary.Total(), HasOrphans: summary.HasOrphans()}, nil
}
