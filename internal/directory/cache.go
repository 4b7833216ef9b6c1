package directory

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
)

// Lookup is the directory contract shared by the Postgres source and the cache.
type Lookup interface {
	GetEmail(ctx context.Context, recipientID int64) (string, error)
}

// CachedDirectory is a Redis read-through cache in front of another Lookup.
// Misses are not cached. Redis errors degrade to the backing lookup.
type CachedDirectory struct {
	next   Lookup
	redis  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedDirectory(next Lookup, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedDirectory {
	return &CachedDirectory{
		next:   next,
		redis:  rdb,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "directory-cache"}),
	}
}

func CacheKey(recipientID int64) string {
	return fmt.Sprintf("notify:recipient:%d:email", recipientID)
}

func (c *CachedDirectory) GetEmail(ctx context.Context, recipientID int64) (string, error) {
	key := CacheKey(recipientID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil && val != "":
		return val, nil
	case err != nil && !stderrors.Is(err, redis.Nil):
		c.logger.Warn("directory cache read failed", map[string]interface{}{
			"recipientId": recipientID,
			"error":       err.Error(),
		})
	}

	email, err := c.next.GetEmail(ctx, recipientID)
	if err != nil {
		return "", err
	}

	if err := c.redis.Set(ctx, key, email, c.ttl).Err(); err != nil {
		c.logger.Warn("directory cache write failed", map[string]interface{}{
			"recipientId": recipientID,
			"error":       err.Error(),
		})
	}
	return email, nil
}

// Invalidate drops a cached address, e.g. after the user changes it.
func (c *CachedDirectory) Invalidate(ctx context.Context, recipientID int64) error {
	if err := c.redis.Del(ctx, CacheKey(recipientID)).Err(); err != nil {
		return errors.NewExternalServiceError("redis", err)
	}
	return nil
}
