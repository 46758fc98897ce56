package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyStatusInProgress = "in_progress"
	idempotencyStatusCompleted  = "completed"
)

// RedisIdempotencyStore keeps one hash per (scope, key) with the request
// fingerprint, a status, and on completion the cached response.
type RedisIdempotencyStore struct {
	client *redis.Client
	prefix string
}

func NewRedisIdempotencyStore(client *redis.Client, prefix string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client, prefix: prefix}
}

func (s *RedisIdempotencyStore) redisKey(scope, key string) string {
	return s.prefix + ":" + scope + ":" + key
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, scope, key, fingerprint string, ttl time.Duration) (IdempotencyBeginResult, error) {
	redisKey := s.redisKey(scope, key)

	claimed, err := s.client.HSetNX(ctx, redisKey, "fingerprint", fingerprint).Result()
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("claim idempotency key: %w", err)
	}
	if claimed {
		if err := s.client.HSet(ctx, redisKey, "status", idempotencyStatusInProgress).Err(); err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("mark in progress: %w", err)
		}
		if err := s.client.Expire(ctx, redisKey, ttl).Err(); err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("set idempotency ttl: %w", err)
		}
		return IdempotencyBeginResult{State: IdempotencyStateNew}, nil
	}

	fields, err := s.client.HGetAll(ctx, redisKey).Result()
	if err != nil {
		return IdempotencyBeginResult{}, fmt.Errorf("load idempotency record: %w", err)
	}
	if fields["fingerprint"] != fingerprint {
		return IdempotencyBeginResult{State: IdempotencyStateConflict}, nil
	}

	switch fields["status"] {
	case idempotencyStatusInProgress:
		return IdempotencyBeginResult{State: IdempotencyStateInProgress}, nil
	case idempotencyStatusCompleted:
		status, err := strconv.Atoi(fields["response_status"])
		if err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("parse replay status: %w", err)
		}
		body, err := base64.StdEncoding.DecodeString(fields["response_body"])
		if err != nil {
			return IdempotencyBeginResult{}, fmt.Errorf("decode replay body: %w", err)
		}
		return IdempotencyBeginResult{
			State: IdempotencyStateReplay,
			Cached: &CachedHTTPResponse{
				StatusCode:  status,
				ContentType: fields["content_type"],
				Body:        body,
			},
		}, nil
	default:
		return IdempotencyBeginResult{}, fmt.Errorf("unexpected idempotency status %q", fields["status"])
	}
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, scope, key, fingerprint string, resp CachedHTTPResponse, ttl time.Duration) error {
	redisKey := s.redisKey(scope, key)
	err := s.client.HSet(ctx, redisKey,
		"fingerprint", fingerprint,
		"status", idempotencyStatusCompleted,
		"response_status", strconv.Itoa(resp.StatusCode),
		"content_type", resp.ContentType,
		"response_body", base64.StdEncoding.EncodeToString(resp.Body),
	).Err()
	if err != nil {
		return fmt.Errorf("store idempotency result: %w", err)
	}
	if err := s.client.Expire(ctx, redisKey, ttl).Err(); err != nil {
		return fmt.Errorf("refresh idempotency ttl: %w", err)
	}
	return nil
}
