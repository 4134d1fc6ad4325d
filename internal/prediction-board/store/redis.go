package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Redis persiste a seleção em chaves "board:selection:{profile}:{key}", sem TTL.
type Redis struct {
	R      *redis.Client
	prefix string
}

func NewRedis(r *redis.Client, profile string) *Redis {
	return &Redis{R: r, prefix: "board:selection:" + profile + ":"}
}

func (s *Redis) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.R.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *Redis) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.R.Set(ctx, s.prefix+key, value, 0).Err()
}

func (s *Redis) Delete(ctx context.Context, key string) error {
	return s.R.Del(ctx, s.prefix+key).Err()
}
