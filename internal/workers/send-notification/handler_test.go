package sendnotification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notifier/internal/common/config"
	"portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

type MockNotifier struct {
	NotifyBulkFunc func(ctx context.Context, req models.NotificationRequest, recipientIDs []int64) models.Outcomes
	lastRequest    models.NotificationRequest
}

func (m *MockNotifier) NotifyBulk(ctx context.Context, req models.NotificationRequest, recipientIDs []int64) models.Outcomes {
	m.lastRequest = req
	return m.NotifyBulkFunc(ctx, req, recipientIDs)
}

// deliverAll reports every recipient × channel as delivered, except the
// email channel of recipients listed in failEmail.
func deliverAll(failEmail ...int64) func(context.Context, models.NotificationRequest, []int64) models.Outcomes {
	failed := map[int64]bool{}
	for _, id := range failEmail {
		failed[id] = true
	}
	return func(_ context.Context, req models.NotificationRequest, ids []int64) models.Outcomes {
		out := models.Outcomes{}
		for _, id := range ids {
			for _, ch := range models.ExpandChannels(req.Channels...) {
				o := models.DeliveryOutcome{NotificationID: req.ID, RecipientID: id, Channel: ch, Kind: req.Kind, Status: models.StatusDelivered}
				if ch == models.ChannelEmail && failed[id] {
					o.Status = models.StatusFailed
					o.Cause = models.CauseInvalidRecipient
					o.Reason = "recipient not found"
				}
				out = append(out, o)
			}
		}
		return out
	}
}

func createTestHandler(t *testing.T, n Notifier) *Handler {
	h, err := NewHandler(HandlerOptions{
		AppConfig: &config.Config{},
		Notifier:  n,
		Logger:    logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                key,
		Type:               TaskType,
		ProcessInstanceKey: key * 10,
		BpmnProcessId:      "project-lifecycle",
		ElementId:          "Activity_SendNotification",
		CustomHeaders:      "{}",
		Worker:             "test-worker",
		Retries:            3,
		Variables:          string(variablesJSON),
	}}
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		input      *Input
		failEmail  []int64
		wantStatus string
		wantKind   models.NotificationKind
		wantCounts [3]int // delivered, failed, notConfigured
	}{
		{
			name:       "all delivered",
			input:      &Input{RecipientIDs: []int64{1, 2}, Kind: "project_created"},
			wantStatus: StatusSent,
			wantKind:   models.KindProjectCreated,
			wantCounts: [3]int{4, 0, 0},
		},
		{
			name:       "partial",
			input:      &Input{RecipientIDs: []int64{1, 2}, Domain: "PROJECT", Category: "created"},
			failEmail:  []int64{2},
			wantStatus: StatusPartial,
			wantKind:   models.KindProjectCreated,
			wantCounts: [3]int{3, 1, 0},
		},
		{
			name:       "all failed",
			input:      &Input{RecipientIDs: []int64{2}, Kind: "reminder", Channels: []string{"email"}},
			failEmail:  []int64{2},
			wantStatus: StatusFailed,
			wantKind:   models.KindReminder,
			wantCounts: [3]int{0, 1, 0},
		},
		{
			name:       "no recipients",
			input:      &Input{Kind: "system"},
			wantStatus: StatusSkipped,
			wantKind:   models.KindSystem,
		},
		{
			name:       "unknown category is system",
			input:      &Input{RecipientIDs: []int64{1}, Domain: "EVENT", Category: "frobnicated", Channels: []string{"in_app"}},
			wantStatus: StatusSent,
			wantKind:   models.KindSystem,
			wantCounts: [3]int{1, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockNotifier{NotifyBulkFunc: deliverAll(tt.failEmail...)}
			h := createTestHandler(t, mock)

			output, err := h.Execute(context.Background(), tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, output.Status)
			assert.NotEmpty(t, output.NotificationID)
			assert.NotEmpty(t, output.SentAt)
			assert.Equal(t, tt.wantKind, mock.lastRequest.Kind)
			assert.Equal(t, tt.wantCounts, [3]int{output.Delivered, output.Failed, output.NotConfigured})
		})
	}
}

func TestHandler_Execute_RequestMapping(t *testing.T) {
	mock := &MockNotifier{NotifyBulkFunc: deliverAll()}
	h := createTestHandler(t, mock)

	_, err := h.Execute(context.Background(), &Input{
		RecipientIDs: []int64{5},
		Kind:         "file_uploaded",
		Title:        "caller title",
		Payload:      map[string]interface{}{"filename": "plan.pdf"},
		Priority:     "urgent",
		Channels:     []string{"in_app"},
		Locale:       "ka",
	})
	require.NoError(t, err)

	req := mock.lastRequest
	assert.Equal(t, models.PriorityUrgent, req.Priority)
	assert.Equal(t, []models.Channel{models.ChannelInApp}, req.Channels)
	assert.Equal(t, "ka", req.Locale)
	assert.Equal(t, "caller title", req.Title)
	assert.Equal(t, "plan.pdf", req.Payload["filename"])
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{NotifyBulkFunc: deliverAll()})

	tests := []struct {
		name  string
		input *Input
	}{
		{"unknown kind", &Input{RecipientIDs: []int64{1}, Kind: "party"}},
		{"unknown channel", &Input{RecipientIDs: []int64{1}, Kind: "system", Channels: []string{"sms"}}},
		{"unknown priority", &Input{RecipientIDs: []int64{1}, Kind: "system", Priority: "critical"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeInvalidNotificationInput, errors.CodeOf(err))
		})
	}
}

func TestHandler_ParseInput(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{NotifyBulkFunc: deliverAll()})

	tests := []struct {
		name      string
		variables map[string]interface{}
		wantCode  errors.ErrorCode
	}{
		{
			name: "valid",
			variables: map[string]interface{}{
				"recipientIds": []int64{1, 2},
				"domain":       "PROJECT",
				"category":     "updated",
				"payload":      map[string]interface{}{"project_name": "Tower A"},
			},
		},
		{
			name:      "missing recipients",
			variables: map[string]interface{}{"kind": "system"},
			wantCode:  errors.ErrCodeInvalidNotificationInput,
		},
		{
			name:      "missing kind and category",
			variables: map[string]interface{}{"recipientIds": []int64{1}},
			wantCode:  errors.ErrCodeInvalidNotificationInput,
		},
		{
			name:      "bad channel",
			variables: map[string]interface{}{"recipientIds": []int64{1}, "kind": "system", "channels": []string{"fax"}},
			wantCode:  errors.ErrCodeInvalidNotificationInput,
		},
		{
			name:      "non-integer recipient",
			variables: map[string]interface{}{"recipientIds": []string{"abc"}, "kind": "system"},
			wantCode:  errors.ErrCodeInvalidNotificationInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := createMockJob(1, tt.variables)

			input, err := h.parseInput(job.GetVariables())

			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []int64{1, 2}, input.RecipientIDs)
			assert.Equal(t, "Tower A", input.Payload["project_name"])
		})
	}
}

func TestHandler_ParseInput_Malformed(t *testing.T) {
	h := createTestHandler(t, &MockNotifier{NotifyBulkFunc: deliverAll()})

	_, err := h.parseInput(`{"recipientIds": [1,`)

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeParseError, errors.CodeOf(err))
}

func TestNewHandler_RequiresNotifier(t *testing.T) {
	_, err := NewHandler(HandlerOptions{AppConfig: &config.Config{}})

	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, StatusSent, summarize(2, 0))
	assert.Equal(t, StatusPartial, summarize(1, 1))
	assert.Equal(t, StatusFailed, summarize(0, 3))
	assert.Equal(t, StatusSkipped, summarize(0, 0))
}
