package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

func TestSNSPushSink_SendPersonal(t *testing.T) {
	const topic = "arn:aws:sns:eu-central-1:123456789012:portal-notifications"

	var captured *sns.PublishInput
	mock := &MockSNSService{PublishFunc: func(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
		captured = params
		return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
	}}
	sink := NewSNSPushSink(mock, topic, logger.NewTestLogger(t))

	n := models.InAppNotification{
		Type:     models.InAppMessageType,
		ID:       "n-1",
		Kind:     models.KindReminder,
		Priority: models.PriorityHigh,
		Data:     map[string]interface{}{},
	}
	require.NoError(t, sink.SendPersonal(context.Background(), 17, n))

	require.NotNil(t, captured)
	assert.Equal(t, topic, aws.ToString(captured.TopicArn))
	assert.Equal(t, "17", aws.ToString(captured.MessageAttributes["recipient_id"].StringValue))
	assert.Equal(t, "Number", aws.ToString(captured.MessageAttributes["recipient_id"].DataType))
	assert.Equal(t, "high", aws.ToString(captured.MessageAttributes["priority"].StringValue))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(captured.Message)), &body))
	assert.Equal(t, "notification", body["type"])
	assert.Equal(t, "reminder", body["kind"])
}

func TestSNSPushSink_Error(t *testing.T) {
	mock := &MockSNSService{PublishFunc: func(context.Context, *sns.PublishInput, ...func(*sns.Options)) (*sns.PublishOutput, error) {
		return nil, errors.New("AuthorizationError")
	}}
	sink := NewSNSPushSink(mock, "arn:topic", logger.NewTestLogger(t))

	err := sink.SendPersonal(context.Background(), 1, models.InAppNotification{})

	assert.EqualError(t, err, "AuthorizationError")
}
