package statusrefresh

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
	"interview-sync/internal/invites"
)

const (
	TaskType  = "interview.status.refresh"
	ConfigKey = "interview-status-refresh"
)

// Lifecycle is the part of the invite manager this worker drives.
type Lifecycle interface {
	RefreshStatusFromOrchestrator(ctx context.Context, interviewID string) (*invites.StatusRefresh, error)
	ExpireStaleInvites(ctx context.Context) (int64, error)
}

type Handler struct {
	config    *Config
	lifecycle Lifecycle
	errors    *apperrors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, lifecycle Lifecycle, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		lifecycle: lifecycle,
		errors:    apperrors.NewErrorHandler(l),
		logger:    l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() { metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds()) }()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := parseInput(job)
	if err == nil {
		var output *Output
		if output, err = h.execute(ctx, input); err == nil {
			h.completeJob(ctx, client, job, output)
			return
		}
	}
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func parseInput(job entities.Job) (*Input, error) {
	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		return nil, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

// execute polls one interview when asked, then sweeps overdue invites. Remote
// failures are absorbed by the lifecycle manager; only local errors fail.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	output := &Output{InterviewID: input.InterviewID}

	if input.InterviewID != "" {
		res, err := h.lifecycle.RefreshStatusFromOrchestrator(ctx, input.InterviewID)
		if err != nil {
			return nil, err
		}
		output.Status = string(res.Interview.Status)
		output.PreviousStatus = string(res.Previous)
		output.Changed = res.Changed
	}

	if h.config.ExpireStale || input.InterviewID == "" {
		n, err := h.lifecycle.ExpireStaleInvites(ctx)
		if err != nil {
			return nil, err
		}
		output.ExpiredInvites = n
	}
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
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
