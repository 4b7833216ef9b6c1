package notifier

import (
	"context"

	"portal-notifier/internal/models"
)

// RequestOption adjusts a builder's request before it is sent.
type RequestOption func(*models.NotificationRequest)

func WithLocale(locale string) RequestOption {
	return func(r *models.NotificationRequest) { r.Locale = locale }
}

func WithPriority(p models.Priority) RequestOption {
	return func(r *models.NotificationRequest) { r.Priority = p }
}

func WithChannels(channels ...models.Channel) RequestOption {
	return func(r *models.NotificationRequest) { r.Channels = channels }
}

func newRequest(kind models.NotificationKind, title, message string, payload map[string]interface{}, opts []RequestOption) models.NotificationRequest {
	req := models.NotificationRequest{
		Kind:     kind,
		Title:    title,
		Message:  message,
		Payload:  payload,
		Priority: models.PriorityMedium,
		Channels: []models.Channel{models.ChannelBoth},
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// mergePayload layers extra over fixed. Caller-supplied keys win on collision.
func mergePayload(fixed, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fixed)+len(extra))
	for k, v := range fixed {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// ProjectUpdate notifies project members. updateType is a free category
// such as "created" or "deleted"; unknown values send a system notification.
func (c *Coordinator) ProjectUpdate(ctx context.Context, projectID int64, recipientIDs []int64, updateType, title, message string, extra map[string]interface{}, opts ...RequestOption) models.Outcomes {
	payload := mergePayload(map[string]interface{}{
		"project_id":  projectID,
		"update_type": updateType,
	}, extra)
	kind := models.ResolveKind(models.DomainProject, updateType)
	return c.NotifyBulk(ctx, newRequest(kind, title, message, payload, opts), recipientIDs)
}

func (c *Coordinator) EventUpdate(ctx context.Context, eventID int64, recipientIDs []int64, updateType, title, message string, extra map[string]interface{}, opts ...RequestOption) models.Outcomes {
	payload := mergePayload(map[string]interface{}{
		"event_id":    eventID,
		"update_type": updateType,
	}, extra)
	kind := models.ResolveKind(models.DomainEvent, updateType)
	return c.NotifyBulk(ctx, newRequest(kind, title, message, payload, opts), recipientIDs)
}

func (c *Coordinator) FileUpload(ctx context.Context, projectID, fileID int64, recipientIDs []int64, title, message string, extra map[string]interface{}, opts ...RequestOption) models.Outcomes {
	payload := mergePayload(map[string]interface{}{
		"project_id": projectID,
		"file_id":    fileID,
	}, extra)
	return c.NotifyBulk(ctx, newRequest(models.KindFileUploaded, title, message, payload, opts), recipientIDs)
}

func (c *Coordinator) TaskAssigned(ctx context.Context, taskID, projectID int64, recipientIDs []int64, title, message string, extra map[string]interface{}, opts ...RequestOption) models.Outcomes {
	payload := mergePayload(map[string]interface{}{
		"task_id":    taskID,
		"project_id": projectID,
	}, extra)
	return c.NotifyBulk(ctx, newRequest(models.KindTaskAssigned, title, message, payload, opts), recipientIDs)
}

// Reminder sends a high priority reminder to one user over every channel.
func (c *Coordinator) Reminder(ctx context.Context, recipientID int64, title, message string, extra map[string]interface{}, opts ...RequestOption) models.Outcomes {
	opts = append([]RequestOption{WithPriority(models.PriorityHigh)}, opts...)
	req := newRequest(models.KindReminder, title, message, mergePayload(nil, extra), opts)
	req.RecipientID = recipientID
	return c.Notify(ctx, req)
}
