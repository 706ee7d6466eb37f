package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "idempotency:"

// RedisStore keeps keys in Redis. Expiry is delegated to key TTLs, so Purge is a no-op.
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStore constructs a RedisStore using client.
func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: defaultRedisPrefix}
}

func (s *RedisStore) redisKey(key string) string {
	return s.prefix + documentID(key)
}

func (s *RedisStore) Begin(ctx context.Context, key, fingerprint string, now time.Time, ttl time.Duration) (Outcome, Record, error) {
	record := newInFlight(key, fingerprint, now, ttl)
	payload, err := encodeRecord(record)
	if err != nil {
		return 0, Record{}, err
	}

	acquired, err := s.client.SetNX(ctx, s.redisKey(key), payload, ttl).Result()
	if err != nil {
		return 0, Record{}, fmt.Errorf("idempotency: redis setnx: %w", err)
	}
	if acquired {
		return OutcomeAcquired, record, nil
	}

	existing, err := s.load(ctx, key)
	if errors.Is(err, redis.Nil) {
		// Expired between SETNX and GET; report in-flight so the client retries.
		return OutcomeInFlight, record, nil
	}
	if err != nil {
		return 0, Record{}, err
	}
	outcome, err := outcomeOf(existing, fingerprint)
	return outcome, existing, err
}

func (s *RedisStore) Complete(ctx context.Context, key, fingerprint string, resp Response, now time.Time, ttl time.Duration) error {
	existing, err := s.load(ctx, key)
	switch {
	case errors.Is(err, redis.Nil):
		existing = newInFlight(key, fingerprint, now, ttl)
	case err != nil:
		return err
	case existing.Fingerprint != fingerprint:
		return ErrFingerprintMismatch
	}

	payload, err := encodeRecord(completed(existing, resp, now, ttl))
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.redisKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency: redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Abandon(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.redisKey(key)).Err(); err != nil {
		return fmt.Errorf("idempotency: redis del: %w", err)
	}
	return nil
}

func (s *RedisStore) Purge(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *RedisStore) load(ctx context.Context, key string) (Record, error) {
	raw, err := s.client.Get(ctx, s.redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("idempotency: redis get: %w", err)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return Record{}, fmt.Errorf("idempotency: decode record: %w", err)
	}
	return record, nil
}

func encodeRecord(record Record) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("idempotency: encode record: %w", err)
	}
	return string(data), nil
}
