package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

type redisKV struct{ rdb *redis.Client }

// NewRedisKV stores each key as a plain Redis string.
func NewRedisKV(rdb *redis.Client) KV { return &redisKV{rdb: rdb} }

func (r *redisKV) Get(ctx context.Context, clave string) ([]byte, error) {
	v, err := r.rdb.Get(ctx, clave).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrClaveNoExiste
	}
	return v, err
}

// SetMany runs inside MULTI/EXEC so readers never see half a batch.
func (r *redisKV) SetMany(ctx context.Context, valores map[string][]byte) error {
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		for k, v := range valores {
			p.Set(ctx, k, v, 0)
		}
		return nil
	})
	if err != nil && esOOM(err) {
		return fmt.Errorf("%w: %v", ErrCuotaExcedida, err)
	}
	return err
}

func (r *redisKV) Delete(ctx context.Context, claves ...string) error {
	if len(claves) == 0 {
		return nil
	}
	return r.rdb.Del(ctx, claves...).Err()
}

func (r *redisKV) Ping(ctx context.Context) error { return r.rdb.Ping(ctx).Err() }

// Redis answers writes past maxmemory with "OOM command not allowed ...".
func esOOM(err error) bool {
	return strings.HasPrefix(err.Error(), "OOM")
}
