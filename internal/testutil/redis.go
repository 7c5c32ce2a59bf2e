//go:build integration

package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisAddr returns the address of the test Redis server from
// ADDRBATCH_TEST_REDIS_ADDR, or "" when unset.
func RedisAddr() string {
	return os.Getenv("ADDRBATCH_TEST_REDIS_ADDR")
}

// SkipIfNoRedis skips the test if the test Redis server is not reachable.
func SkipIfNoRedis(t *testing.T) {
	t.Helper()

	addr := RedisAddr()
	if addr == "" {
		t.Skip("test Redis not available: set ADDRBATCH_TEST_REDIS_ADDR")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("test Redis not reachable at %s: %v", addr, err)
	}
}

// RedisClient returns a client for the specified DB, closed on cleanup.
func RedisClient(t *testing.T, db int) *redis.Client {
	t.Helper()
	addr := RedisAddr()
	if addr == "" {
		t.Fatal("test Redis not available")
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	t.Cleanup(func() { client.Close() })
	return client
}

// SeedList replaces key with a Redis list of values and deletes it on cleanup.
func SeedList(t *testing.T, client *redis.Client, key string, values ...string) {
	t.Helper()

	ctx := context.Background()
	if err := client.Del(ctx, key).Err(); err != nil {
		t.Fatalf("clearing %s: %v", key, err)
	}
	if len(values) > 0 {
		args := make([]interface{}, len(values))
		for i, v := range values {
			args[i] = v
		}
		if err := client.RPush(ctx, key, args...).Err(); err != nil {
			t.Fatalf("seeding %s: %v", key, err)
		}
	}
	t.Cleanup(func() { client.Del(context.Background(), key) })
}
