package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
)

type mockLookup struct {
	GetEmailFunc func(ctx context.Context, recipientID int64) (string, error)
	calls        int
}

func (m *mockLookup) GetEmail(ctx context.Context, recipientID int64) (string, error) {
	m.calls++
	return m.GetEmailFunc(ctx, recipientID)
}

func TestCachedDirectory_GetEmail(t *testing.T) {
	const ttl = 5 * time.Minute

	t.Run("cache hit skips lookup", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		next := &mockLookup{}
		redisMock.ExpectGet("notify:recipient:7:email").SetVal("cached@portal.ge")

		dir := NewCachedDirectory(next, redisClient, ttl, logger.NewTestLogger(t))
		email, err := dir.GetEmail(context.Background(), 7)

		assert.NoError(t, err)
		assert.Equal(t, "cached@portal.ge", email)
		assert.Zero(t, next.calls)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("miss reads through and populates", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		next := &mockLookup{GetEmailFunc: func(context.Context, int64) (string, error) {
			return "db@portal.ge", nil
		}}
		redisMock.ExpectGet("notify:recipient:7:email").RedisNil()
		redisMock.ExpectSet("notify:recipient:7:email", "db@portal.ge", ttl).SetVal("OK")

		dir := NewCachedDirectory(next, redisClient, ttl, logger.NewTestLogger(t))
		email, err := dir.GetEmail(context.Background(), 7)

		assert.NoError(t, err)
		assert.Equal(t, "db@portal.ge", email)
		assert.Equal(t, 1, next.calls)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("not found is not cached", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		next := &mockLookup{GetEmailFunc: func(_ context.Context, id int64) (string, error) {
			return "", apperrors.NewRecipientNotFoundError(id)
		}}
		redisMock.ExpectGet("notify:recipient:9:email").RedisNil()

		dir := NewCachedDirectory(next, redisClient, ttl, logger.NewTestLogger(t))
		_, err := dir.GetEmail(context.Background(), 9)

		assert.True(t, errors.Is(err, apperrors.ErrRecipientNotFound))
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("redis outage falls back to lookup", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		next := &mockLookup{GetEmailFunc: func(context.Context, int64) (string, error) {
			return "db@portal.ge", nil
		}}
		redisMock.ExpectGet("notify:recipient:3:email").SetErr(errors.New("connection refused"))
		redisMock.ExpectSet("notify:recipient:3:email", "db@portal.ge", ttl).SetErr(errors.New("connection refused"))

		dir := NewCachedDirectory(next, redisClient, ttl, logger.NewTestLogger(t))
		email, err := dir.GetEmail(context.Background(), 3)

		assert.NoError(t, err)
		assert.Equal(t, "db@portal.ge", email)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}

func TestCachedDirectory_Invalidate(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	redisMock.ExpectDel("notify:recipient:5:email").SetVal(1)

	dir := NewCachedDirectory(&mockLookup{}, redisClient, time.Minute, logger.NewNoOpLogger())

	assert.NoError(t, dir.Invalidate(context.Background(), 5))
	assert.NoError(t, redisMock.ExpectationsWereMet())
}
