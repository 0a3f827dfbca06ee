package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/lmco/eurekastreams-sub009/internal/domain"
)

var _ domain.Cache = (*Redis)(nil)

// Redis shares cached values between processes. Lists are native redis lists of decimal ids, so an
// empty list is indistinguishable from a missing one and is rebuilt on the next read.
type Redis struct {
	client      redis.UniversalClient
	prefix      string
	maxListSize int
}

func NewRedis(client redis.UniversalClient, prefix string, maxListSize int) *Redis {
	return &Redis{client: client, prefix: prefix, maxListSize: maxListSize}
}

// DialRedis connects to a single redis node and checks it answers.
func DialRedis(ctx context.Context, addr string, db int, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Redis) key(key string) string { return r.prefix + key }

func (r *Redis) Get(ctx context.Context, key string, out any) (bool, error) {
	raw, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(key), raw, 0).Err()
}

func (r *Redis) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, r.key(k))
	}
	return r.client.Del(ctx, full...).Err()
}

// Clear removes every key under the configured prefix.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 500).Iterator()
	batch := make([]string, 0, 500)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == cap(batch) {
			if err := r.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return r.client.Del(ctx, batch...).Err()
	}
	return nil
}

func (r *Redis) GetList(ctx context.Context, key string) ([]int64, bool, error) {
	values, err := r.client.LRange(ctx, r.key(key), 0, -1).Result()
	if err != nil {
		return nil, false, err
	}
	if len(values) == 0 {
		return nil, false, nil
	}
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, false, err
		}
		ids = append(ids, id)
	}
	return ids, true, nil
}

func (r *Redis) SetList(ctx context.Context, key string, ids []int64) error {
	ids = capList(ids, r.maxListSize)
	full := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, full)
		if len(ids) > 0 {
			pipe.RPush(ctx, full, idArgs(ids)...)
		}
		return nil
	})
	return err
}

// AddToTopOfList prepends to an existing list only; LPUSHX leaves missing keys alone.
func (r *Redis) AddToTopOfList(ctx context.Context, key string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	reversed := make([]int64, len(ids))
	for i, id := range ids {
		reversed[len(ids)-1-i] = id
	}
	full := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPushX(ctx, full, idArgs(reversed)...)
		if r.maxListSize > 0 {
			pipe.LTrim(ctx, full, 0, int64(r.maxListSize-1))
		}
		return nil
	})
	return err
}

func (r *Redis) RemoveFromList(ctx context.Context, key string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	full := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			pipe.LRem(ctx, full, 0, strconv.FormatInt(id, 10))
		}
		return nil
	})
	return err
}

func idArgs(ids []int64) []interface{} {
	args := make([]interface{}, 0, len(ids))
	for _, id := range ids {
		args = append(args, strconv.FormatInt(id, 10))
	}
	return args
}
