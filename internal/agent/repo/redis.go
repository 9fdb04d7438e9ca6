package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	"github.com/primal-archive/server/internal/agent/model"
	errx "github.com/primal-archive/server/internal/core/error"
	logx "github.com/primal-archive/server/pkg/logger"
)

// RedisThreadStore keeps each thread's history in a redis list of JSON
// messages. A turn's messages are appended in a single pipeline so the
// thread never observes a half-written turn.
type RedisThreadStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisThreadStore(rdb redis.Cmdable, ttl time.Duration) *RedisThreadStore {
	return &RedisThreadStore{rdb: rdb, ttl: ttl}
}

func (r *RedisThreadStore) threadKey(threadID string) string {
	return fmt.Sprintf("thread:%s:messages", threadID)
}

func (r *RedisThreadStore) CommitTurn(ctx context.Context, threadID string, messages []*schema.Message) error {
	if len(messages) == 0 {
		return nil
	}

	values := make([]any, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Msg("failed to marshal message")
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}

	key := r.threadKey(threadID)
	pipe := r.rdb.TxPipeline()
	pipe.RPush(ctx, key, values...)
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to commit turn to redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisThreadStore) LoadHistory(ctx context.Context, threadID string) (*model.ThreadHistory, error) {
	key := r.threadKey(threadID)

	rows, err := r.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return &model.ThreadHistory{ThreadID: threadID, Messages: []*schema.Message{}}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load thread history from redis")
		return nil, errx.WrapRedis(err)
	}

	msgs := make([]*schema.Message, 0, len(rows))
	for i, s := range rows {
		var m schema.Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			logx.Error().Err(err).Str("thread_id", threadID).Int("index", i).Msg("failed to unmarshal message")
			return nil, fmt.Errorf("unmarshal message at index %d: %w", i, err)
		}
		msgs = append(msgs, &m)
	}
	return &model.ThreadHistory{ThreadID: threadID, Messages: msgs}, nil
}

func (r *RedisThreadStore) ClearHistory(ctx context.Context, threadID string) error {
	key := r.threadKey(threadID)
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to delete thread history from redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisThreadStore) MessageCount(ctx context.Context, threadID string) (int, error) {
	key := r.threadKey(threadID)
	n, err := r.rdb.LLen(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to get message count from redis")
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

var _ model.ThreadStore = (*RedisThreadStore)(nil)
