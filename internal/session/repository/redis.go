package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"volunteer-platform/backend/internal/session/domain"
)

const (
	sessionKeyPrefix = "session:key:"
	userIndexPrefix  = "session:user:"
	// expiredRetention keeps expired records around long enough to tell "expired" from
	// "unknown" in logs. Correctness never depends on the record being gone.
	expiredRetention = 24 * time.Hour
	maxWatchRetries  = 4
)

// RedisRepository stores sessions as JSON under session:key:<key> with a per-user index
// session:user:<id>. Records carry a Redis TTL so abandoned sessions disappear on their own.
type RedisRepository struct {
	rdb redis.UniversalClient
}

// NewRedisRepository returns a session repository backed by rdb.
func NewRedisRepository(rdb redis.UniversalClient) *RedisRepository {
	return &RedisRepository{rdb: rdb}
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func sessionKey(key string) string        { return sessionKeyPrefix + key }
func userIndexKey(id string) string       { return userIndexPrefix + id }
func retainUntil(exp time.Time) time.Time { return exp.Add(expiredRetention) }

// GetByKey returns the session for key, or nil if not found.
func (r *RedisRepository) GetByKey(ctx context.Context, key string) (*domain.Session, error) {
	return r.load(ctx, r.rdb, key)
}

// GetByUser returns the user's session, or nil if the user has none.
func (r *RedisRepository) GetByUser(ctx context.Context, userID string) (*domain.Session, error) {
	key, err := r.rdb.Get(ctx, userIndexKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r.load(ctx, r.rdb, key)
}

// Replace watches the user index, keeps a live session if one exists and otherwise swaps in s
// with MULTI/EXEC. A concurrent writer aborts the transaction and the check is retried.
func (r *RedisRepository) Replace(ctx context.Context, s *domain.Session, now time.Time) (*domain.Session, error) {
	idx := userIndexKey(s.UserID)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}

	for i := 0; i < maxWatchRetries; i++ {
		var result *domain.Session
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			oldKey, err := tx.Get(ctx, idx).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if oldKey != "" {
				existing, err := r.load(ctx, tx, oldKey)
				if err != nil {
					return err
				}
				if existing != nil && !existing.ExpiredAt(now) {
					result = existing
					return nil
				}
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				if oldKey != "" {
					pipe.Del(ctx, sessionKey(oldKey))
				}
				pipe.Set(ctx, sessionKey(s.Key), data, 0)
				pipe.ExpireAt(ctx, sessionKey(s.Key), retainUntil(s.ExpiresAt))
				pipe.Set(ctx, idx, s.Key, 0)
				pipe.ExpireAt(ctx, idx, retainUntil(s.ExpiresAt))
				return nil
			})
			if err != nil {
				return err
			}
			c := *s
			result = &c
			return nil
		}, idx)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, redis.TxFailedErr
}

// UpdateExpiry rewrites the record's expiry and pushes its Redis TTL forward. The record is
// watched so a Delete racing the renewal aborts the write instead of being undone by it.
func (r *RedisRepository) UpdateExpiry(ctx context.Context, key string, expiresAt time.Time) error {
	sk := sessionKey(key)
	for i := 0; i < maxWatchRetries; i++ {
		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			s, err := r.load(ctx, tx, key)
			if err != nil || s == nil {
				return err
			}
			s.ExpiresAt = expiresAt
			data, err := json.Marshal(s)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.SetXX(ctx, sk, data, redis.KeepTTL)
				pipe.ExpireAt(ctx, sk, retainUntil(expiresAt))
				pipe.ExpireAt(ctx, userIndexKey(s.UserID), retainUntil(expiresAt))
				return nil
			})
			return err
		}, sk)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

// Delete removes the session and, if it still points at key, the user index.
func (r *RedisRepository) Delete(ctx context.Context, key string) error {
	s, err := r.load(ctx, r.rdb, key)
	if err != nil || s == nil {
		return err
	}
	idx := userIndexKey(s.UserID)
	cur, err := r.rdb.Get(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(key))
		if cur == key {
			pipe.Del(ctx, idx)
		}
		return nil
	})
	return err
}

// DeleteByUser removes the user's session and index.
func (r *RedisRepository) DeleteByUser(ctx context.Context, userID string) error {
	idx := userIndexKey(userID)
	key, err := r.rdb.Get(ctx, idx).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(key), idx)
		return nil
	})
	return err
}

// DeleteExpired scans session records and removes those expired at or before before.
// Redis TTLs already drop records after the retention window; this only shortens it.
func (r *RedisRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	var n int64
	iter := r.rdb.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()[len(sessionKeyPrefix):]
		s, err := r.load(ctx, r.rdb, key)
		if err != nil {
			return n, err
		}
		if s == nil || !s.ExpiredAt(before) {
			continue
		}
		if err := r.Delete(ctx, key); err != nil {
			return n, err
		}
		n++
	}
	return n, iter.Err()
}

func (r *RedisRepository) load(ctx context.Context, c getter, key string) (*domain.Session, error) {
	data, err := c.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var s domain.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	s.Key = key
	return &s, nil
}
