package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
)

// RedisPushSink publishes in-app notifications on a per-user channel so any
// gateway instance holding the user's websocket can forward them.
type RedisPushSink struct {
	redis  *redis.Client
	prefix string
	logger logger.Logger
}

func NewRedisPushSink(rdb *redis.Client, prefix string, log logger.Logger) *RedisPushSink {
	return &RedisPushSink{
		redis:  rdb,
		prefix: prefix,
		logger: log.WithFields(map[string]interface{}{"sink": "redis"}),
	}
}

// Channel returns the pub/sub channel for one user, e.g. "notifications:42".
func (s *RedisPushSink) Channel(recipientID int64) string {
	return fmt.Sprintf("%s:%d", s.prefix, recipientID)
}

func (s *RedisPushSink) SendPersonal(ctx context.Context, recipientID int64, n models.InAppNotification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	receivers, err := s.redis.Publish(ctx, s.Channel(recipientID), data).Result()
	if err != nil {
		return err
	}

	s.logger.Debug("notification published", map[string]interface{}{
		"recipientId": recipientID,
		"receivers":   receivers,
	})
	return nil
}
