package knowledge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quickspin-labs/assistant/internal/core/errx"
	logx "github.com/quickspin-labs/assistant/pkg/logger"
)

const (
	docIndexKey = "knowledge:docs"
	docKeyFmt   = "knowledge:doc:%s"
)

// RedisStore keeps knowledge documents as JSON values indexed by a Redis set.
// Ranking runs client-side over the loaded corpus; the corpus is a small
// curated documentation set, not user data.
type RedisStore struct {
	rdb redis.Cmdable
}

func NewRedisStore(rdb redis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func docKey(id string) string {
	return fmt.Sprintf(docKeyFmt, id)
}

// Add inserts or replaces one document.
func (s *RedisStore) Add(ctx context.Context, snippet Snippet) error {
	snippet.Score = 0
	b, err := json.Marshal(snippet)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := s.rdb.Set(ctx, docKey(snippet.ID), b, 0).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	if err := s.rdb.SAdd(ctx, docIndexKey, snippet.ID).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

// Count returns the number of indexed documents.
func (s *RedisStore) Count(ctx context.Context) (int, error) {
	n, err := s.rdb.SCard(ctx, docIndexKey).Result()
	if err != nil {
		return 0, errx.WrapRedis(err)
	}
	return int(n), nil
}

// Search loads the corpus and ranks it against the query.
func (s *RedisStore) Search(ctx context.Context, query string, category Category, topK int) ([]Snippet, error) {
	ids, err := s.rdb.SMembers(ctx, docIndexKey).Result()
	if err != nil {
		return nil, errx.WrapRedis(err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	docs := make([]Snippet, 0, len(ids))
	for _, id := range ids {
		raw, err := s.rdb.Get(ctx, docKey(id)).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, errx.WrapRedis(err)
		}
		var doc Snippet
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			logx.Warn().Err(err).Str("doc_id", id).Msg("skipping undecodable knowledge document")
			continue
		}
		docs = append(docs, doc)
	}

	return rank(query, category, docs, topK), nil
}

// Seed populates the store with the built-in QuickSpin documentation when it
// is empty. Idempotent: a non-empty store is left untouched.
func (s *RedisStore) Seed(ctx context.Context) error {
	n, err := s.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	for _, doc := range seedDocuments {
		if err := s.Add(ctx, doc); err != nil {
			return err
		}
	}
	logx.Info().Int("documents", len(seedDocuments)).Msg("knowledge base seeded")
	return nil
}

var _ Store = (*RedisStore)(nil)
