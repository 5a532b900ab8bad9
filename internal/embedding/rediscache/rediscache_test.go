package rediscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClient struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failGet bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeClient) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	val, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestCacheRoundTrip(t *testing.T) {
	client := newFakeClient()
	cache := &Cache{client: client, ttl: time.Hour}
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, "k", []float32{0.5, -1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.ttls["k"] != time.Hour {
		t.Fatalf("expected ttl to be applied, got %v", client.ttls["k"])
	}

	v, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if len(v) != 2 || v[0] != 0.5 || v[1] != -1 {
		t.Fatalf("unexpected vector: %v", v)
	}
}

func TestCacheErrors(t *testing.T) {
	client := newFakeClient()
	client.data["bad"] = "not-json"
	cache := &Cache{client: client}

	if _, _, err := cache.Get(context.Background(), "bad"); err == nil {
		t.Fatal("expected decode error")
	}

	client.failGet = true
	if _, ok, err := cache.Get(context.Background(), "k"); err == nil || ok {
		t.Fatalf("expected transport error, got ok=%v err=%v", ok, err)
	}
}
