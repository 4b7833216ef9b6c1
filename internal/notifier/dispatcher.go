package notifier

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

// InAppSink pushes a notification to a connected user.
type InAppSink interface {
	SendPersonal(ctx context.Context, recipientID int64, n models.InAppNotification) error
}

// EmailSink hands a formatted message to a mail transport.
type EmailSink interface {
	SendEmail(ctx context.Context, msg EmailMessage) error
}

// RecipientDirectory resolves a user's email address. A missing user or
// address is reported as errors.ErrRecipientNotFound.
type RecipientDirectory interface {
	GetEmail(ctx context.Context, recipientID int64) (string, error)
}

type EmailMessage struct {
	NotificationID string
	To             string
	Subject        string
	TextBody       string
	HTMLBody       string
	Priority       models.Priority
	Kind           models.NotificationKind
}

// Task is one (recipient, channel) delivery.
type Task struct {
	NotificationID string
	RecipientID    int64
	Channel        models.Channel
	Kind           models.NotificationKind
	Priority       models.Priority
	Text           Rendered
	Payload        map[string]interface{}
	CreatedAt      time.Time
}

// Deliverer executes a single task and never returns an error; every
// failure is described by the outcome.
type Deliverer interface {
	Deliver(ctx context.Context, task Task) models.DeliveryOutcome
}

type Dispatcher struct {
	inApp     InAppSink
	email     EmailSink
	directory RecipientDirectory
	log       logger.Logger
}

// NewDispatcher wires the sinks. Any of them may be nil; tasks for a channel
// without a sink report StatusNotConfigured.
func NewDispatcher(inApp InAppSink, email EmailSink, directory RecipientDirectory, log logger.Logger) *Dispatcher {
	return &Dispatcher{inApp: inApp, email: email, directory: directory, log: log}
}

func (d *Dispatcher) Deliver(ctx context.Context, task Task) (out models.DeliveryOutcome) {
	start := time.Now()
	out = models.DeliveryOutcome{
		NotificationID: task.NotificationID,
		RecipientID:    task.RecipientID,
		Channel:        task.Channel,
		Kind:           task.Kind,
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("sink panic: %v", r)
			out = fail(out, models.CauseTransport, errors.NewTransportFailedError(string(task.Channel), err))
		}
		out.Duration = time.Since(start)
	}()

	switch task.Channel {
	case models.ChannelInApp:
		return d.deliverInApp(ctx, task, out)
	case models.ChannelEmail:
		return d.deliverEmail(ctx, task, out)
	default:
		return fail(out, models.CauseTransport, errors.NewTransportNotConfiguredError(string(task.Channel)))
	}
}

func (d *Dispatcher) deliverInApp(ctx context.Context, task Task, out models.DeliveryOutcome) models.DeliveryOutcome {
	if d.inApp == nil {
		return notConfigured(out)
	}

	n := models.InAppNotification{
		Type:      models.InAppMessageType,
		ID:        task.NotificationID,
		Kind:      task.Kind,
		Title:     task.Text.Title,
		Message:   task.Text.Message,
		Priority:  task.Priority,
		Timestamp: task.CreatedAt.UTC().Format(time.RFC3339Nano),
		Data:      task.Payload,
	}
	if n.Data == nil {
		n.Data = map[string]interface{}{}
	}

	if err := d.inApp.SendPersonal(ctx, task.RecipientID, n); err != nil {
		return fail(out, models.CauseTransport, errors.NewTransportFailedError("in_app", err))
	}
	out.Status = models.StatusDelivered
	return out
}

func (d *Dispatcher) deliverEmail(ctx context.Context, task Task, out models.DeliveryOutcome) models.DeliveryOutcome {
	if d.email == nil || d.directory == nil {
		return notConfigured(out)
	}

	address, err := d.directory.GetEmail(ctx, task.RecipientID)
	switch {
	case err != nil && stderrors.Is(err, errors.ErrRecipientNotFound):
		return fail(out, models.CauseInvalidRecipient, err)
	case err != nil:
		return fail(out, models.CauseLookup, err)
	case strings.TrimSpace(address) == "":
		return fail(out, models.CauseInvalidRecipient, errors.NewRecipientNotFoundError(task.RecipientID))
	}

	htmlBody, err := renderEmailHTML(task.Text)
	if err != nil {
		return fail(out, models.CauseRendering, errors.NewTemplateRenderFailedError(string(task.Kind), err))
	}

	msg := EmailMessage{
		NotificationID: task.NotificationID,
		To:             address,
		Subject:        task.Text.Title,
		TextBody:       task.Text.Message,
		HTMLBody:       htmlBody,
		Priority:       task.Priority,
		Kind:           task.Kind,
	}

	if err := d.email.SendEmail(ctx, msg); err != nil {
		return fail(out, models.CauseTransport, errors.NewTransportFailedError("email", err))
	}
	out.Status = models.StatusDelivered
	return out
}

func fail(out models.DeliveryOutcome, cause models.FailureCause, err error) models.DeliveryOutcome {
	out.Status = models.StatusFailed
	out.Cause = cause
	out.Err = err
	out.Reason = reasonOf(err)
	return out
}

func notConfigured(out models.DeliveryOutcome) models.DeliveryOutcome {
	err := errors.NewTransportNotConfiguredError(string(out.Channel))
	out.Status = models.StatusNotConfigured
	out.Err = err
	out.Reason = err.Message
	return out
}

// reasonOf prefers the short StandardError message over the full chain.
func reasonOf(err error) string {
	var stdErr *errors.StandardError
	if stderrors.As(err, &stdErr) {
		if stdErr.Code == errors.ErrCodeTransportFailed && stdErr.Cause != nil {
			return stdErr.Cause.Error()
		}
		return stdErr.Message
	}
	return err.Error()
}

var emailLayout = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<h2>{{.Title}}</h2>
{{range .Paragraphs}}<p>{{.}}</p>
{{end}}</body>
</html>
`))

func renderEmailHTML(text Rendered) (string, error) {
	var buf bytes.Buffer
	err := emailLayout.Execute(&buf, struct {
		Title      string
		Paragraphs []string
	}{
		Title:      text.Title,
		Paragraphs: strings.Split(text.Message, "\n"),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
