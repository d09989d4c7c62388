package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const presenceKeyPrefix = "trade_market:presence:"

//nolint:gochecknoglobals
var (
	// KEYS[1] user key, ARGV[1] conn id.
	compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	// KEYS[1] user key, KEYS[2] conn key, ARGV[1] conn id, ARGV[2] ttl ms.
	compareAndExpire = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return redis.call("PEXPIRE", KEYS[2], ARGV[2])`)
)

// RedisRegistry разделяет присутствие между процессами. Ключи живут ttl и
// продлеваются через Refresh, поэтому упавший процесс не оставляет вечных
// записей.
type RedisRegistry struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisRegistry(client redis.UniversalClient, ttl time.Duration) *RedisRegistry {
	return &RedisRegistry{client: client, ttl: ttl}
}

func (r *RedisRegistry) Register(ctx context.Context, userID uuid.UUID, connID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(userID), connID, r.ttl)
		pipe.Set(ctx, connKey(connID), userID.String(), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis.TxPipelined: %w", err)
	}

	return nil
}

func (r *RedisRegistry) Unregister(ctx context.Context, connID string) error {
	raw, err := r.client.GetDel(ctx, connKey(connID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redis.GetDel: %w", err)
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("uuid.Parse: %w", err)
	}

	if err := compareAndDelete.Run(ctx, r.client, []string{userKey(userID)}, connID).Err(); err != nil {
		return fmt.Errorf("compareAndDelete.Run: %w", err)
	}

	return nil
}

func (r *RedisRegistry) Resolve(ctx context.Context, userID uuid.UUID) (string, bool, error) {
	connID, err := r.client.Get(ctx, userKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis.Get: %w", err)
	}

	return connID, true, nil
}

func (r *RedisRegistry) Refresh(ctx context.Context, userID uuid.UUID, connID string) error {
	keys := []string{userKey(userID), connKey(connID)}
	if err := compareAndExpire.Run(ctx, r.client, keys, connID, r.ttl.Milliseconds()).Err(); err != nil {
		return fmt.Errorf("compareAndExpire.Run: %w", err)
	}

	return nil
}

// Clear оставляет записи истекать по TTL: другие процессы могут держать
// свои соединения в том же пространстве ключей.
func (r *RedisRegistry) Clear(context.Context) error {
	return nil
}

func userKey(userID uuid.UUID) string {
	return presenceKeyPrefix + "user:" + userID.String()
}

func connKey(connID string) string {
	return presenceKeyPrefix + "conn:" + connID
}
