package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisEventDedupRepository marks processed event ids with a TTL so a
// redelivered broker message is dropped instead of reprocessed.
type RedisEventDedupRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisEventDedupRepository(client *redis.Client) *RedisEventDedupRepository {
	return &RedisEventDedupRepository{client: client, prefix: "settlement:dedup:"}
}

func (r *RedisEventDedupRepository) IsDuplicate(ctx context.Context, eventID string, _ time.Time) (bool, error) {
	_, err := r.client.Get(ctx, r.prefix+eventID).Result()
	if errors.Is(err, redis.Nil) { return false, nil }
	if err != nil { return false, err }
	return true, nil
}

func (r *RedisEventDedupRepository) MarkProcessed(ctx context.Context, eventID, eventType string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 { ttl = time.Minute }
	return r.client.Set(ctx, r.prefix+eventID, eventType, ttl).Err()
}
