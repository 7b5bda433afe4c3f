package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paintbox-ai/paintbox/imaging"
)

func testEntry(provider string) *Entry {
	return &Entry{
		Response: &imaging.GenerateResponse{
			Provider: provider,
			Model:    "test-model",
			Images: []imaging.ImageBlob{
				{MIMEType: "image/png", Data: "aGVsbG8="},
			},
		},
	}
}

func TestLRUCache_Basic(t *testing.T) {
	c := newLRUCache(3, time.Minute)

	c.Set("key1", testEntry("gemini"))

	got, ok := c.Get("key1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.Response.Provider != "gemini" {
		t.Errorf("expected provider=gemini, got %s", got.Response.Provider)
	}
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache(2, time.Minute)

	c.Set("key1", testEntry("a"))
	c.Set("key2", testEntry("b"))
	c.Set("key3", testEntry("c")) // evicts key1

	if _, ok := c.Get("key1"); ok {
		t.Error("key1 should have been evicted")
	}
	if _, ok := c.Get("key2"); !ok {
		t.Error("key2 should exist")
	}
	if _, ok := c.Get("key3"); !ok {
		t.Error("key3 should exist")
	}
}

func TestLRUCache_PromotionOnGet(t *testing.T) {
	c := newLRUCache(2, time.Minute)

	c.Set("key1", testEntry("a"))
	c.Set("key2", testEntry("b"))

	// Touch key1 so key2 becomes the eviction candidate.
	if _, ok := c.Get("key1"); !ok {
		t.Fatal("expected cache hit")
	}
	c.Set("key3", testEntry("c"))

	if _, ok := c.Get("key1"); !ok {
		t.Error("key1 should have survived eviction")
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("key2 should have been evicted")
	}
}

func TestLRUCache_TTL(t *testing.T) {
	c := newLRUCache(10, 10*time.Millisecond)

	c.Set("key1", testEntry("a"))

	if _, ok := c.Get("key1"); !ok {
		t.Error("expected cache hit")
	}

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Error("expected cache miss after TTL")
	}
}

func TestKey_Deterministic(t *testing.T) {
	req1 := &imaging.GenerateRequest{Prompt: "a red fox", Seed: 42, Model: "m"}
	req2 := &imaging.GenerateRequest{Prompt: "a red fox", Seed: 42, Model: "m"}
	req3 := &imaging.GenerateRequest{Prompt: "a blue fox", Seed: 42, Model: "m"}

	assert.Equal(t, Key("generate", req1), Key("generate", req2))
	assert.NotEqual(t, Key("generate", req1), Key("generate", req3))
	assert.NotEqual(t, Key("generate", req1), Key("edit", req1))
}

func TestCacheable(t *testing.T) {
	assert.False(t, Cacheable(0))
	assert.True(t, Cacheable(42))
	assert.True(t, Cacheable(-1))
}

func setupTestCache(t *testing.T) (*miniredis.Miniredis, *ResultCache) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return mr, New(rdb, DefaultConfig(), zap.NewNop())
}

func TestResultCache_SetGet(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	key := Key("generate", &imaging.GenerateRequest{Prompt: "hi", Seed: 7})
	require.NoError(t, c.Set(ctx, key, testEntry("gemini")))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Response.Provider)
	require.Len(t, got.Response.Images, 1)
	assert.Equal(t, "image/png", got.Response.Images[0].MIMEType)
}

func TestResultCache_Miss(t *testing.T) {
	_, c := setupTestCache(t)

	_, err := c.Get(context.Background(), "imaging:cache:generate:deadbeef")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_RedisBackfillsLocal(t *testing.T) {
	mr, c := setupTestCache(t)
	ctx := context.Background()

	key := Key("generate", &imaging.GenerateRequest{Prompt: "hi", Seed: 7})
	require.NoError(t, c.Set(ctx, key, testEntry("gemini")))

	// Drop the local tier; the entry must come back from Redis.
	c.local = newLRUCache(8, time.Minute)
	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "gemini", got.Response.Provider)

	// A Redis flush must now be masked by the backfilled local tier.
	mr.FlushAll()
	_, err = c.Get(ctx, key)
	assert.NoError(t, err)
}

func TestResultCache_Delete(t *testing.T) {
	_, c := setupTestCache(t)
	ctx := context.Background()

	key := Key("edit", &imaging.EditRequest{Instruction: "crop", Seed: 1})
	require.NoError(t, c.Set(ctx, key, testEntry("gemini")))
	require.NoError(t, c.Delete(ctx, key))

	_, err := c.Get(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestResultCache_LocalOnly(t *testing.T) {
	c := New(nil, DefaultConfig(), zap.NewNop())
	ctx := context.Background()

	key := Key("generate", &imaging.GenerateRequest{Prompt: "hi", Seed: 9})
	require.NoError(t, c.Set(ctx, key, testEntry("openai-compat")))

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "openai-compat", got.Response.Provider)
}
