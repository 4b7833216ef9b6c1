package sinks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSPushSink publishes in-app notifications to a topic. Subscribers filter
// on the recipient_id message attribute.
type SNSPushSink struct {
	client   SNSService
	topicARN string
	logger   logger.Logger
}

func NewSNSPushSink(client SNSService, topicARN string, log logger.Logger) *SNSPushSink {
	return &SNSPushSink{
		client:   client,
		topicARN: topicARN,
		logger:   log.WithFields(map[string]interface{}{"sink": "sns"}),
	}
}

func (s *SNSPushSink) SendPersonal(ctx context.Context, recipientID int64, n models.InAppNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(s.topicARN),
		Message:  aws.String(string(data)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"recipient_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(recipientID, 10)),
			},
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(n.Kind)),
			},
			"priority": {
				DataType:    aws.String("String"),
				StringValue: aws.String(n.Priority.String()),
			},
		},
	})
	if err != nil {
		return err
	}

	s.logger.Debug("notification published", map[string]interface{}{
		"recipientId": recipientID,
		"messageId":   aws.ToString(out.MessageId),
	})
	return nil
}
