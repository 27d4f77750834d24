// Package token issues and redeems single-use stream tokens backed by Redis.
// A token grants exactly one consumer the right to open the stream for a
// chat job; redemption is atomic, so concurrent redeemers cannot both win.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrTokenNotFound covers missing, expired, and already consumed tokens.
	// Callers cannot distinguish the three cases, which keeps the token
	// opaque to probing.
	ErrTokenNotFound = errors.New("stream token not found or already consumed")
)

const keyPrefix = "stream_token:"

// RedisClient is the subset of redis.Cmdable the store needs. The concrete
// *redis.Client satisfies it; tests substitute a fake.
type RedisClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	GetDel(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

type Store struct {
	rdb RedisClient
	ttl time.Duration
}

func NewStore(rdb RedisClient, ttl time.Duration) *Store {
	return &Store{
		rdb: rdb,
		ttl: ttl,
	}
}

// Issue creates a fresh opaque token bound to the given job. The token value
// carries no job information; the binding lives only in Redis.
func (s *Store) Issue(ctx context.Context, jobId uuid.UUID) (string, time.Time, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", time.Time{}, fmt.Errorf("generating stream token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	expiresAt := time.Now().Add(s.ttl)
	if err := s.rdb.Set(ctx, keyPrefix+token, jobId.String(), s.ttl).Err(); err != nil {
		return "", time.Time{}, fmt.Errorf("storing stream token: %w", err)
	}
	return token, expiresAt, nil
}

// Consume redeems a token and returns the job it was bound to. GETDEL makes
// redemption atomic: when several connections race on the same token, exactly
// one gets the job id and the rest get ErrTokenNotFound.
func (s *Store) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := s.rdb.GetDel(ctx, keyPrefix+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, ErrTokenNotFound
		}
		return uuid.Nil, fmt.Errorf("redeeming stream token: %w", err)
	}

	jobId, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("corrupt stream token binding: %w", err)
	}
	return jobId, nil
}

// InvalidateAllForJob removes every outstanding token bound to the job.
// Used when a job is cancelled before anyone streamed it.
func (s *Store) InvalidateAllForJob(ctx context.Context, jobId uuid.UUID) error {
	var cursor uint64
	target := jobId.String()
	for {
		keys, next, err := s.rdb.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scanning stream tokens: %w", err)
		}
		for _, key := range keys {
			val, err := s.rdb.Get(ctx, key).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue
				}
				return err
			}
			if val == target {
				if err := s.rdb.Del(ctx, key).Err(); err != nil {
					return err
				}
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
