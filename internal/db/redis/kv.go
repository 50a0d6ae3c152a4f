package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/gomtr72/question-generator/internal/db"
)

// GetInt reads an integer counter.
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Get().Key(key).Build()
	v, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	return v, nil
}

// IncrBy atomically increments a key and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) (int64, error) {
	cmd := s.b().Incrby().Key(key).Increment(val).Build()
	n, err := s.client.Do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// Expire sets TTL on a key. When nx=true, sets TTL only if the key has no expiry yet (EXPIRE NX).
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error {
	if err := s.client.Do(ctx, s.expireCmd(key, ttl, nx)).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}

// IncrByExpireNX pipelines INCRBY and EXPIRE NX.
func (s *Store) IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error) {
	res := s.client.DoMulti(ctx,
		s.b().Incrby().Key(key).Increment(val).Build(),
		s.expireCmd(key, ttl, true),
	)
	n, err := res[0].AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	if err := res[1].Error(); err != nil {
		return n, &db.Error{Op: db.OpExpire, Err: err}
	}
	return n, nil
}

func (s *Store) expireCmd(key string, ttl time.Duration, nx bool) rueidis.Completed {
	secs := int64(ttl.Seconds())
	if nx {
		return s.b().Expire().Key(key).Seconds(secs).Nx().Build()
	}
	return s.b().Expire().Key(key).Seconds(secs).Build()
}
