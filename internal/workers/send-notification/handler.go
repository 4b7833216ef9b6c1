package sendnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"portal-notifier/internal/common/config"
	"portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/metrics"
	"portal-notifier/internal/common/observability"
	"portal-notifier/internal/models"
)

const TaskType = "send-notification"

// Notifier is the fan-out entry point. *notifier.Coordinator implements it.
type Notifier interface {
	NotifyBulk(ctx context.Context, req models.NotificationRequest, recipientIDs []int64) models.Outcomes
}

type Handler struct {
	config       *Config
	notifier     Notifier
	logger       logger.Logger
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Notifier      Notifier
	Logger        logger.Logger
	Observability *observability.Observability
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := createConfigFromAppConfig(opts.AppConfig)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Notifier == nil {
		return nil, fmt.Errorf("%s: notifier is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       cfg,
		notifier:     opts.Notifier,
		logger:       log,
		obs:          opts.Observability,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	if !h.config.Enabled {
		h.completeJob(ctx, client, job, &Output{
			Status:   StatusSkipped,
			Outcomes: models.Outcomes{},
			SentAt:   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	input, err := h.parseInput(job.GetVariables())
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, start)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	h.obs.RecordJobProcessed(ctx, output.Status)
	h.obs.RecordJobDuration(ctx, time.Since(start), output.Status)
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, start time.Time) {
	code := string(errors.Normalize(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	h.obs.RecordJobProcessed(ctx, "error")
	h.obs.RecordJobDuration(ctx, time.Since(start), "error")
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

// parseInput validates the raw variables against the input schema before
// decoding them.
func (h *Handler) parseInput(variables string) (*Input, error) {
	result, err := inputSchema.ValidateJSON(variables)
	if err != nil {
		return nil, errors.NewParseError(err)
	}
	if !result.Valid {
		return nil, errors.NewInvalidNotificationInputError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewParseError(err)
	}
	return &input, nil
}

// Execute turns input into one bulk request and summarises the outcomes.
// Delivery failures are reported in the output, not as an error.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	req, err := toRequest(input)
	if err != nil {
		return nil, err
	}
	req.ID = uuid.NewString()

	outcomes := h.notifier.NotifyBulk(ctx, req, input.RecipientIDs)

	output := &Output{
		NotificationID: req.ID,
		Delivered:      outcomes.Count(models.StatusDelivered),
		Failed:         outcomes.Count(models.StatusFailed),
		NotConfigured:  outcomes.Count(models.StatusNotConfigured),
		Outcomes:       outcomes,
		SentAt:         time.Now().UTC().Format(time.RFC3339),
	}
	output.Status = summarize(output.Delivered, output.Failed)

	h.logger.Info("notification batch finished", map[string]interface{}{
		"notificationId": output.NotificationID,
		"kind":           string(req.Kind),
		"recipients":     len(input.RecipientIDs),
		"status":         output.Status,
		"delivered":      output.Delivered,
		"failed":         output.Failed,
		"notConfigured":  output.NotConfigured,
	})
	return output, nil
}

func summarize(delivered, failed int) string {
	switch {
	case delivered > 0 && failed == 0:
		return StatusSent
	case delivered > 0:
		return StatusPartial
	case failed > 0:
		return StatusFailed
	default:
		return StatusSkipped
	}
}

func toRequest(input *Input) (models.NotificationRequest, error) {
	var kind models.NotificationKind
	if input.Kind != "" {
		k, err := models.ParseKind(input.Kind)
		if err != nil {
			return models.NotificationRequest{}, errors.NewInvalidNotificationInputError(err.Error())
		}
		kind = k
	} else {
		kind = models.ResolveKind(input.Domain, input.Category)
	}

	priority, err := models.ParsePriority(input.Priority)
	if err != nil {
		return models.NotificationRequest{}, errors.NewInvalidNotificationInputError(err.Error())
	}

	channels := []models.Channel{models.ChannelBoth}
	if len(input.Channels) > 0 {
		channels = channels[:0]
		for _, c := range input.Channels {
			ch, err := models.ParseChannel(strings.TrimSpace(c))
			if err != nil {
				return models.NotificationRequest{}, errors.NewInvalidNotificationInputError(err.Error())
			}
			channels = append(channels, ch)
		}
	}

	return models.NotificationRequest{
		Kind:     kind,
		Title:    input.Title,
		Message:  input.Message,
		Payload:  input.Payload,
		Priority: priority,
		Channels: channels,
		Locale:   input.Locale,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
