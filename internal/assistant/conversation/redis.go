package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

// RedisRepository stores conversations in Redis: turns as a list, the header
// as a JSON string, and a per-user sorted set scored by last update time so
// listing comes back most-recent-first.
type RedisRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisRepository(rdb redis.Cmdable, ttl time.Duration) *RedisRepository {
	return &RedisRepository{rdb: rdb, ttl: ttl}
}

func turnsKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:turns", conversationID)
}

func headerKey(conversationID string) string {
	return fmt.Sprintf("conversation:%s:header", conversationID)
}

func userIndexKey(userID string) string {
	return fmt.Sprintf("user:%s:conversations", userID)
}

func (r *RedisRepository) AppendTurn(ctx context.Context, conv model.Conversation, turn model.Turn) error {
	b, err := json.Marshal(turn)
	if err != nil {
		logx.Error().Err(err).Str("conversationID", conv.ID).Msg("failed to marshal turn")
		return errx.New(err, errx.KindPersistence, errx.PersistenceErrorMessage)
	}

	key := turnsKey(conv.ID)
	n, err := r.rdb.RPush(ctx, key, b).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to push turn to redis")
		return errx.WrapRedis(err)
	}

	now := turn.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}
	header, err := r.GetConversation(ctx, conv.ID)
	if err != nil {
		return err
	}
	if header == nil {
		header = &conv
		header.CreatedAt = now
	}
	header.UpdatedAt = now
	header.TurnCount = int(n)
	if header.Title == "" && turn.Role == model.RoleUser {
		header.Title = titleFrom(turn.Content)
	}
	hb, err := json.Marshal(header)
	if err != nil {
		return errx.New(err, errx.KindPersistence, errx.PersistenceErrorMessage)
	}
	if err := r.rdb.Set(ctx, headerKey(conv.ID), hb, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("conversationID", conv.ID).Msg("failed to store conversation header")
		return errx.WrapRedis(err)
	}
	if header.UserID != "" {
		if err := r.rdb.ZAdd(ctx, userIndexKey(header.UserID), redis.Z{
			Score:  float64(now.UnixMilli()),
			Member: conv.ID,
		}).Err(); err != nil {
			logx.Error().Err(err).Str("userID", header.UserID).Msg("failed to index conversation for user")
			return errx.WrapRedis(err)
		}
	}

	// extend TTL on touch
	if r.ttl > 0 {
		if ok, err := r.rdb.Expire(ctx, key, r.ttl).Result(); err != nil {
			logx.Error().Err(err).Str("key", key).Msg("failed to set expire")
			return errx.WrapRedis(err)
		} else if !ok {
			logx.Warn().Str("key", key).Dur("ttl", r.ttl).Msg("failed to set TTL on conversation key")
		}
	}
	return nil
}

func (r *RedisRepository) RecentTurns(ctx context.Context, conversationID string, limit int) ([]model.Turn, error) {
	key := turnsKey(conversationID)

	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	rows, err := r.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.Turn{}, nil
		}
		logx.Error().Err(err).Str("key", key).Msg("failed to load turns from redis")
		return nil, errx.WrapRedis(err)
	}

	turns := make([]model.Turn, 0, len(rows))
	for i, s := range rows {
		var t model.Turn
		if err := json.Unmarshal([]byte(s), &t); err != nil {
			logx.Error().Err(err).Str("conversationID", conversationID).Int("index", i).Msg("failed to unmarshal turn")
			return nil, errx.New(err, errx.KindPersistence, errx.PersistenceErrorMessage)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (r *RedisRepository) ListConversations(ctx context.Context, userID string, limit int) ([]model.Conversation, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.rdb.ZRevRange(ctx, userIndexKey(userID), 0, stop).Result()
	if err != nil {
		if err == redis.Nil {
			return []model.Conversation{}, nil
		}
		logx.Error().Err(err).Str("userID", userID).Msg("failed to list conversations")
		return nil, errx.WrapRedis(err)
	}

	convs := make([]model.Conversation, 0, len(ids))
	for _, id := range ids {
		header, err := r.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		if header == nil {
			// header expired while the index entry lingered
			continue
		}
		convs = append(convs, *header)
	}
	return convs, nil
}

func (r *RedisRepository) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	raw, err := r.rdb.Get(ctx, headerKey(conversationID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to load conversation header")
		return nil, errx.WrapRedis(err)
	}
	var conv model.Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		return nil, errx.New(err, errx.KindPersistence, errx.PersistenceErrorMessage)
	}
	return &conv, nil
}

func (r *RedisRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	header, err := r.GetConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if err := r.rdb.Del(ctx, turnsKey(conversationID), headerKey(conversationID)).Err(); err != nil {
		logx.Error().Err(err).Str("conversationID", conversationID).Msg("failed to delete conversation")
		return errx.WrapRedis(err)
	}
	if header != nil && header.UserID != "" {
		if err := r.rdb.ZRem(ctx, userIndexKey(header.UserID), conversationID).Err(); err != nil {
			logx.Error().Err(err).Str("userID", header.UserID).Msg("failed to remove conversation from user index")
			return errx.WrapRedis(err)
		}
	}
	return nil
}

const maxTitleLen = 60

func titleFrom(content string) string {
	if len(content) <= maxTitleLen {
		return content
	}
	return content[:maxTitleLen] + "..."
}

var _ model.ConversationRepository = (*RedisRepository)(nil)
