// Package sinks holds the email and in-app delivery transports.
package sinks

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/notifier"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESEmailSink sends text and HTML bodies through Amazon SES.
type SESEmailSink struct {
	client    SESService
	fromEmail string
	logger    logger.Logger
}

func NewSESEmailSink(client SESService, fromEmail string, log logger.Logger) *SESEmailSink {
	return &SESEmailSink{
		client:    client,
		fromEmail: fromEmail,
		logger:    log.WithFields(map[string]interface{}{"sink": "ses"}),
	}
}

func (s *SESEmailSink) SendEmail(ctx context.Context, msg notifier.EmailMessage) error {
	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")},
	}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}

	out, err := s.client.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(s.fromEmail),
		Tags: []types.MessageTag{
			{Name: aws.String("kind"), Value: aws.String(string(msg.Kind))},
			{Name: aws.String("priority"), Value: aws.String(msg.Priority.String())},
		},
	})
	if err != nil {
		return err
	}

	s.logger.Debug("email sent", map[string]interface{}{
		"notificationId": msg.NotificationID,
		"messageId":      aws.ToString(out.MessageId),
	})
	return nil
}
