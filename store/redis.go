package store

import (
	"context"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

const redisKeyPrefix = "touch:mirror:"

type RedisMirror struct {
	Client *redis.Client
}

func NewRedisMirror(options *redis.Options) *RedisMirror {
	return &RedisMirror{Client: redis.NewClient(options)}
}

func (r *RedisMirror) Load(ctx context.Context, key string) ([]byte, bool, error) {
	payload, err := r.Client.Get(ctx, redisKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to load %s", key)
	}
	return payload, true, nil
}

func (r *RedisMirror) Save(ctx context.Context, key string, payload []byte) error {
	if err := r.Client.Set(ctx, redisKeyPrefix+key, payload, 0).Err(); err != nil {
		return errors.Wrapf(err, "failed to save %s", key)
	}
	return nil
}

func (r *RedisMirror) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys := []string{}
	iter := r.Client.Scan(ctx, 0, redisKeyPrefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), redisKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to scan keys with prefix %s", prefix)
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *RedisMirror) Ping(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}
