package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-settlement-engine/internal/ports"
)

// RedisIdempotencyRepository stores idempotency records with a TTL so
// retried requests replay the original response instead of re-running the
// settlement.
type RedisIdempotencyRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisIdempotencyRepository(client *redis.Client) *RedisIdempotencyRepository {
	return &RedisIdempotencyRepository{client: client, prefix: "settlement:idem:"}
}

type idempotencyDoc struct {
	Key          string    `json:"key"`
	RequestHash  string    `json:"request_hash"`
	ResponseCode int       `json:"response_code"`
	ResponseBody []byte    `json:"response_body,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (r *RedisIdempotencyRepository) Get(ctx context.Context, key string, now time.Time) (*ports.IdempotencyRecord, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) { return nil, nil }
	if err != nil { return nil, err }
	var doc idempotencyDoc
	if err := json.Unmarshal(raw, &doc); err != nil { return nil, err }
	if now.After(doc.ExpiresAt) { return nil, nil }
	return &ports.IdempotencyRecord{Key: doc.Key, RequestHash: doc.RequestHash, ResponseCode: doc.ResponseCode, ResponseBody: doc.ResponseBody, ExpiresAt: doc.ExpiresAt}, nil
}

func (r *RedisIdempotencyRepository) Reserve(ctx context.Context, key, requestHash string, expiresAt time.Time) error {
	doc := idempotencyDoc{Key: key, RequestHash: requestHash, ExpiresAt: expiresAt}
	raw, err := json.Marshal(doc)
	if err != nil { return err }
	ok, err := r.client.SetNX(ctx, r.prefix+key, raw, time.Until(expiresAt)).Result()
	if err != nil { return err }
	if !ok { return domain.ErrConflict }
	return nil
}

func (r *RedisIdempotencyRepository) Complete(ctx context.Context, key string, responseCode int, responseBody []byte, _ time.Time) error {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) { return domain.ErrNotFound }
	if err != nil { return err }
	var doc idempotencyDoc
	if err := json.Unmarshal(raw, &doc); err != nil { return err }
	doc.ResponseCode = responseCode
	doc.ResponseBody = responseBody
	updated, err := json.Marshal(doc)
	if err != nil { return err }
	ttl := time.Until(doc.ExpiresAt)
	if ttl <= 0 { return domain.ErrNotFound }
	return r.client.Set(ctx, r.prefix+key, updated, ttl).Err()
}
