package notifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

func emailTask(recipientID int64) Task {
	return Task{
		NotificationID: "n-1",
		RecipientID:    recipientID,
		Channel:        models.ChannelEmail,
		Kind:           models.KindProjectCreated,
		Priority:       models.PriorityHigh,
		Text:           Rendered{Title: "New Project Created", Message: "Line one\n<b>Line two</b>"},
		Payload:        map[string]interface{}{"project_id": 7},
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_InApp(t *testing.T) {
	inApp := &fakeInApp{}
	d := NewDispatcher(inApp, nil, nil, logger.NewTestLogger(t))

	task := emailTask(5)
	task.Channel = models.ChannelInApp
	task.Payload = nil

	out := d.Deliver(context.Background(), task)

	assert.Equal(t, models.StatusDelivered, out.Status)
	assert.Equal(t, int64(5), out.RecipientID)
	require.Len(t, inApp.sent, 1)

	n := inApp.sent[0]
	assert.Equal(t, "notification", n.Type)
	assert.Equal(t, "n-1", n.ID)
	assert.Equal(t, models.PriorityHigh, n.Priority)
	assert.Equal(t, "2026-03-01T10:00:00Z", n.Timestamp)
	assert.NotNil(t, n.Data)
}

func TestDispatcher_Email(t *testing.T) {
	tests := []struct {
		name       string
		email      *fakeEmail
		directory  *fakeDirectory
		wantStatus models.DeliveryStatus
		wantCause  models.FailureCause
		wantReason string
	}{
		{
			name:       "delivered",
			email:      &fakeEmail{},
			directory:  &fakeDirectory{GetEmailFunc: func(context.Context, int64) (string, error) { return "a@b.ge", nil }},
			wantStatus: models.StatusDelivered,
		},
		{
			name:  "recipient not found",
			email: &fakeEmail{},
			directory: &fakeDirectory{GetEmailFunc: func(_ context.Context, id int64) (string, error) {
				return "", apperrors.NewRecipientNotFoundError(id)
			}},
			wantStatus: models.StatusFailed,
			wantCause:  models.CauseInvalidRecipient,
			wantReason: "recipient not found",
		},
		{
			name:       "empty address",
			email:      &fakeEmail{},
			directory:  &fakeDirectory{GetEmailFunc: func(context.Context, int64) (string, error) { return "  ", nil }},
			wantStatus: models.StatusFailed,
			wantCause:  models.CauseInvalidRecipient,
			wantReason: "recipient not found",
		},
		{
			name:  "lookup error",
			email: &fakeEmail{},
			directory: &fakeDirectory{GetEmailFunc: func(_ context.Context, id int64) (string, error) {
				return "", apperrors.NewDirectoryLookupFailedError(id, errors.New("connection reset"))
			}},
			wantStatus: models.StatusFailed,
			wantCause:  models.CauseLookup,
			wantReason: "recipient lookup failed",
		},
		{
			name: "transport error",
			email: &fakeEmail{SendEmailFunc: func(context.Context, EmailMessage) error {
				return errors.New("smtp 451")
			}},
			directory:  &fakeDirectory{GetEmailFunc: func(context.Context, int64) (string, error) { return "a@b.ge", nil }},
			wantStatus: models.StatusFailed,
			wantCause:  models.CauseTransport,
			wantReason: "smtp 451",
		},
		{
			name: "panicking sink",
			email: &fakeEmail{SendEmailFunc: func(context.Context, EmailMessage) error {
				panic("boom")
			}},
			directory:  &fakeDirectory{GetEmailFunc: func(context.Context, int64) (string, error) { return "a@b.ge", nil }},
			wantStatus: models.StatusFailed,
			wantCause:  models.CauseTransport,
			wantReason: "sink panic: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(nil, tt.email, tt.directory, logger.NewTestLogger(t))

			out := d.Deliver(context.Background(), emailTask(2))

			assert.Equal(t, tt.wantStatus, out.Status)
			assert.Equal(t, tt.wantCause, out.Cause)
			assert.Equal(t, tt.wantReason, out.Reason)
			if tt.wantStatus == models.StatusFailed {
				assert.Error(t, out.Err)
			}
		})
	}
}

func TestDispatcher_EmailMessage(t *testing.T) {
	email := &fakeEmail{}
	dir := &fakeDirectory{GetEmailFunc: func(context.Context, int64) (string, error) { return "pm@portal.ge", nil }}
	d := NewDispatcher(nil, email, dir, logger.NewTestLogger(t))

	out := d.Deliver(context.Background(), emailTask(3))
	require.True(t, out.Delivered())
	require.Len(t, email.sent, 1)

	msg := email.sent[0]
	assert.Equal(t, "pm@portal.ge", msg.To)
	assert.Equal(t, "New Project Created", msg.Subject)
	assert.Equal(t, "Line one\n<b>Line two</b>", msg.TextBody)
	assert.Contains(t, msg.HTMLBody, "<p>Line one</p>")
	assert.Contains(t, msg.HTMLBody, "&lt;b&gt;Line two&lt;/b&gt;")
	assert.Equal(t, models.PriorityHigh, msg.Priority)
}

func TestDispatcher_NotConfigured(t *testing.T) {
	d := NewDispatcher(nil, nil, nil, logger.NewTestLogger(t))

	for _, ch := range []models.Channel{models.ChannelInApp, models.ChannelEmail} {
		task := emailTask(1)
		task.Channel = ch

		out := d.Deliver(context.Background(), task)

		assert.Equal(t, models.StatusNotConfigured, out.Status, ch)
		assert.False(t, out.Delivered())
		assert.True(t, errors.Is(out.Err, apperrors.ErrTransportNotConfigured))
	}
}
