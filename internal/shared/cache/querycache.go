package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueryCache guarda resultados de listagem sob chaves "q:<entity>:<name>".
// Escritas no primário invalidam a entidade inteira (delete-on-write).
type QueryCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewQueryCache(rdb *redis.Client, ttl time.Duration) *QueryCache {
	return &QueryCache{rdb: rdb, ttl: ttl}
}

func queryKey(entity, name string) string {
	return "q:" + entity + ":" + name
}

// GetJSON carrega um resultado cacheado; false quando ausente.
func (c *QueryCache) GetJSON(ctx context.Context, entity, name string, out any) (bool, error) {
	payload, err := c.rdb.Get(ctx, queryKey(entity, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// SetJSON grava um resultado com TTL; falha de cache não é fatal para o caller.
func (c *QueryCache) SetJSON(ctx context.Context, entity, name string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.rdb.Set(ctx, queryKey(entity, name), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// InvalidateEntity apaga todas as chaves de listagem da entidade via SCAN.
func (c *QueryCache) InvalidateEntity(ctx context.Context, entity string) error {
	pattern := "q:" + entity + ":*"
	iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache del: %w", err)
	}
	return nil
}
