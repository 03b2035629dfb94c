package invitenotify

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "interview-sync/internal/common/errors"
	"interview-sync/internal/common/logger"
	"interview-sync/internal/common/metrics"
	"interview-sync/internal/models"
)

const (
	TaskType  = "interview.invite.notify"
	ConfigKey = "interview-invite-notify"
)

type Store interface {
	GetInterview(ctx context.Context, id string) (*models.Interview, error)
	GetApplicant(ctx context.Context, id string) (*models.Applicant, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	GetCurrentInvite(ctx context.Context, interviewID string) (*models.InterviewInvite, error)
}

// EmailSender is satisfied by *aws.SESClient.
type EmailSender interface {
	SendHTML(ctx context.Context, to, subject, html, text string) (string, error)
}

// SMSSender is satisfied by *aws.SNSClient.
type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	store  Store
	email  EmailSender
	sms    SMSSender
	errors *apperrors.ErrorHandler
	logger logger.Logger
	now    func() time.Time
}

// NewHandler builds the handler. email and sms may be nil when the channel is
// not configured.
func NewHandler(config *Config, store Store, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		email:  email,
		sms:    sms,
		errors: apperrors.NewErrorHandler(l),
		logger: l,
		now:    func() time.Time { return time.Now().UTC() },
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

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, apperrors.NewValidationError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}
	h.completeJob(ctx, client, job, output)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.InterviewID == "" {
		return nil, apperrors.NewValidationError("interviewId is required")
	}
	channel := input.Channel
	if channel == "" {
		channel = ChannelEmail
	}
	if channel != ChannelEmail && channel != ChannelSMS && channel != ChannelBoth {
		return nil, apperrors.NewValidationError("channel must be email, sms or both")
	}

	iv, err := h.store.GetInterview(ctx, input.InterviewID)
	if err != nil {
		return nil, err
	}
	output := &Output{InterviewID: iv.ID}

	inv, err := h.store.GetCurrentInvite(ctx, iv.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return h.skip(output, "no invite"), nil
		}
		return nil, err
	}
	if inv.Status != models.InviteActive || inv.IsExpiredAt(h.now()) {
		return h.skip(output, "invite is "+string(inv.Status)), nil
	}
	output.Link = inv.Link(h.config.PublicBaseURL)

	applicant, err := h.store.GetApplicant(ctx, iv.ApplicantID)
	if err != nil {
		return nil, err
	}
	job, err := h.store.GetJob(ctx, iv.JobID)
	if err != nil {
		return nil, err
	}
	msg := renderInvite(applicant, job, output.Link, inv.ExpiresAt)

	if channel != ChannelSMS && h.config.EmailEnabled && h.email != nil && applicant.Email != "" {
		id, err := h.email.SendHTML(ctx, applicant.Email, msg.subject, msg.html, msg.text)
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError("email", err)
		}
		output.EmailMessageID = id
	}
	if channel != ChannelEmail && h.config.SMSEnabled && h.sms != nil && applicant.Phone != "" {
		id, err := h.sms.SendSMS(ctx, applicant.Phone, msg.text)
		if err != nil {
			return nil, apperrors.NewNotificationSendFailedError("sms", err)
		}
		output.SMSMessageID = id
	}

	if output.EmailMessageID == "" && output.SMSMessageID == "" {
		return h.skip(output, "no enabled channel reaches the applicant"), nil
	}
	output.Status = StatusSent
	output.SentAt = h.now().Format(time.RFC3339)
	h.logger.Info("invite sent", map[string]interface{}{
		"interviewId": iv.ID,
		"email":       output.EmailMessageID != "",
		"sms":         output.SMSMessageID != "",
	})
	return output, nil
}

func (h *Handler) skip(output *Output, reason string) *Output {
	output.Status = StatusSkipped
	output.Reason = reason
	h.logger.Info("invite notification skipped", map[string]interface{}{
		"interviewId": output.InterviewID,
		"reason":      reason,
	})
	return output
}

type inviteMessage struct {
	subject string
	html    string
	text    string
}

func renderInvite(a *models.Applicant, job *models.Job, link string, expiresAt time.Time) inviteMessage {
	name := a.FullName()
	if name == "" {
		name = "there"
	}
	expires := expiresAt.UTC().Format("Jan 2, 2006 15:04 MST")
	text := fmt.Sprintf("Hi %s, you are invited to interview for %s. Start here: %s (link expires %s)",
		name, job.Title, link, expires)
	body := fmt.Sprintf(`<p>Hi %s,</p><p>You are invited to interview for <strong>%s</strong>.</p>`+
		`<p><a href="%s">Start your interview</a></p><p>This link expires %s.</p>`,
		html.EscapeString(name), html.EscapeString(job.Title), html.EscapeString(link), expires)
	return inviteMessage{
		subject: "Your interview for " + job.Title,
		html:    body,
		text:    text,
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.CodeOf(err))).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
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
