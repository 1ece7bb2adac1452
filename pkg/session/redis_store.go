package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"city-inspect-be/pkg/store"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists sessions as JSON with a key TTL, so Redis itself
// performs the sweep. Updates run under WATCH to stay atomic across
// instances sharing the same Redis.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string {
	return "inspect:session:" + id
}

func (r *RedisStore) Create(ctx context.Context, session *store.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.rdb.Set(ctx, sessionKey(session.ID), payload, r.ttl+sweepGrace).Err()
}

func (r *RedisStore) Get(ctx context.Context, id string) (*store.Session, error) {
	session, err := r.load(ctx, r.rdb, id)
	if err != nil {
		return nil, err
	}
	if expired(session, time.Now()) {
		return nil, store.ErrSessionExpired
	}
	return session, nil
}

func (r *RedisStore) Update(ctx context.Context, id string, mutate func(*store.Session) error) (*store.Session, error) {
	var updated *store.Session

	key := sessionKey(id)
	err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
		session, err := r.load(ctx, tx, id)
		if err != nil {
			return err
		}
		if expired(session, time.Now()) {
			return store.ErrSessionExpired
		}
		if err := mutate(session); err != nil {
			return err
		}

		payload, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("failed to marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl+sweepGrace)
			return nil
		})
		if err != nil {
			return err
		}
		updated = session
		return nil
	}, key)
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	return r.rdb.Del(ctx, sessionKey(id)).Err()
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *RedisStore) load(ctx context.Context, client redisGetter, id string) (*store.Session, error) {
	payload, err := client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var session store.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}
