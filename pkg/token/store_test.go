package token

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements RedisClient over an in-process map so the atomic
// consume semantics can be tested without a Redis server.
type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	expiry map[string]time.Time
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		expiry: make(map[string]time.Time),
	}
}

func (f *fakeRedis) expired(key string) bool {
	exp, ok := f.expiry[key]
	return ok && time.Now().After(exp)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value.(string)
	// A non-positive TTL lands in the past, so the key reads as expired.
	f.expiry[key] = time.Now().Add(expiration)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.values[key]
	if !ok || f.expired(key) {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	val, ok := f.values[key]
	if !ok || f.expired(key) {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.values, key)
	delete(f.expiry, key)
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			delete(f.expiry, key)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := strings.TrimSuffix(match, "*")
	var keys []string
	for key := range f.values {
		if strings.HasPrefix(key, prefix) && !f.expired(key) {
			keys = append(keys, key)
		}
	}
	return redis.NewScanCmdResult(keys, 0, nil)
}

func TestStore_IssueAndConsume(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)
	ctx := context.Background()

	jobId := uuid.New()
	tok, expiresAt, err := store.Issue(ctx, jobId)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
	assert.True(t, expiresAt.After(time.Now()))

	got, err := store.Consume(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, jobId, got)
}

func TestStore_ConsumeIsSingleUse(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)
	ctx := context.Background()

	tok, _, err := store.Issue(ctx, uuid.New())
	require.NoError(t, err)

	_, err = store.Consume(ctx, tok)
	require.NoError(t, err)

	_, err = store.Consume(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStore_ConsumeUnknownToken(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)

	_, err := store.Consume(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStore_ConsumeExpiredToken(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, -1*time.Second) // already expired on issue
	ctx := context.Background()

	tok, _, err := store.Issue(ctx, uuid.New())
	require.NoError(t, err)

	_, err = store.Consume(ctx, tok)
	assert.ErrorIs(t, err, ErrTokenNotFound)
}

func TestStore_ConcurrentConsumeSingleWinner(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)
	ctx := context.Background()

	jobId := uuid.New()
	tok, _, err := store.Issue(ctx, jobId)
	require.NoError(t, err)

	const racers = 16
	var wg sync.WaitGroup
	var winners int64
	var mu sync.Mutex

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got, err := store.Consume(ctx, tok); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
				assert.Equal(t, jobId, got)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), winners)
}

func TestStore_TokensAreUnique(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		tok, _, err := store.Issue(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, seen[tok], "token reused")
		seen[tok] = true
	}
}

func TestStore_InvalidateAllForJob(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, 10*time.Minute)
	ctx := context.Background()

	jobId := uuid.New()
	otherJob := uuid.New()

	tok1, _, err := store.Issue(ctx, jobId)
	require.NoError(t, err)
	tok2, _, err := store.Issue(ctx, otherJob)
	require.NoError(t, err)

	require.NoError(t, store.InvalidateAllForJob(ctx, jobId))

	_, err = store.Consume(ctx, tok1)
	assert.ErrorIs(t, err, ErrTokenNotFound)

	got, err := store.Consume(ctx, tok2)
	require.NoError(t, err)
	assert.Equal(t, otherJob, got)
}
