package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rezonia/peppol-connector/internal/model"
)

const (
	redisKeyPrefix = "peppol:doc:"
	redisIndexKey  = "peppol:docs"
)

// RedisStore keeps each entry as a JSON value with a set of ids as index
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the server described by a redis:// URL
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (s *RedisStore) Get(ctx context.Context, id string) (*model.PeppolDocument, error) {
	data, err := s.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}

	var doc model.PeppolDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}
	return &doc, nil
}

func (s *RedisStore) Put(ctx context.Context, doc *model.PeppolDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", doc.DocumentID, err)
	}
	key := redisKey(doc.DocumentID)

	// WATCH aborts the write if another client touched the key meanwhile.
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		prev, err := tx.Get(ctx, key).Bytes()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var stored model.PeppolDocument
			if err := json.Unmarshal(prev, &stored); err != nil {
				return fmt.Errorf("failed to decode document %s: %w", doc.DocumentID, err)
			}
			if len(doc.StatusHistory) < len(stored.StatusHistory) {
				return fmt.Errorf("%w: %s", ErrHistoryRewrite, doc.DocumentID)
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			pipe.SAdd(ctx, redisIndexKey, doc.DocumentID)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, ErrHistoryRewrite) {
		return err
	}
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", doc.DocumentID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, redisKey(id))
		pipe.SRem(ctx, redisIndexKey, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*model.PeppolDocument, error) {
	ids, err := s.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	out := make([]*model.PeppolDocument, 0, len(ids))
	for _, id := range ids {
		doc, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// index entry left behind by a concurrent delete
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	sortByCreation(out)
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
