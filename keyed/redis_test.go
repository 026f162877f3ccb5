package keyed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mkessel/ratemeter/pkg/ratemeter"
)

// redisLimiter connects to the instance named by REDIS_ADDR, or skips the
// test when none is available.
func redisLimiter(t *testing.T, cfg ratemeter.Config, opts ...RedisOption) *RedisLimiter {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redis-backed tests")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })

	lim, err := NewRedis(context.Background(), client, cfg, opts...)
	if err != nil {
		t.Fatalf("NewRedis() failed: %v", err)
	}
	return lim
}

func TestRedisLimiter_FullBurst(t *testing.T) {
	lim := redisLimiter(t,
		ratemeter.Config{Capacity: 5, TimeUnit: time.Second},
		WithKeyPrefix(fmt.Sprintf("ratemeter-test:%d:", time.Now().UnixNano())),
	)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		d, err := lim.AllowAt(ctx, "burst", now)
		if err != nil {
			t.Fatalf("AllowAt() failed: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("cell %d should be admitted", i+1)
		}
	}
	d, err := lim.AllowAt(ctx, "burst", now)
	if err != nil {
		t.Fatalf("AllowAt() failed: %v", err)
	}
	if d.Allowed {
		t.Fatal("6th same-instant cell should be denied")
	}
	if d.RetryAt.Before(now) {
		t.Errorf("RetryAt %v precedes now %v", d.RetryAt, now)
	}

	// Retrying at the reported instant conforms.
	d, err = lim.AllowAt(ctx, "burst", d.RetryAt)
	if err != nil {
		t.Fatalf("AllowAt() failed: %v", err)
	}
	if !d.Allowed {
		t.Error("cell at the returned retry instant should be admitted")
	}
}

func TestRedisLimiter_IndependentKeys(t *testing.T) {
	lim := redisLimiter(t,
		ratemeter.Config{Capacity: 1, TimeUnit: time.Minute},
		WithKeyPrefix(fmt.Sprintf("ratemeter-test:%d:", time.Now().UnixNano())),
	)
	ctx := context.Background()
	now := time.Now()

	if d, err := lim.AllowAt(ctx, "a", now); err != nil || !d.Allowed {
		t.Fatalf("key a first cell: decision %v, err %v", d, err)
	}
	if d, _ := lim.AllowAt(ctx, "a", now); d.Allowed {
		t.Error("key a second cell should be denied")
	}
	if d, _ := lim.AllowAt(ctx, "b", now); !d.Allowed {
		t.Error("key b first cell should be admitted")
	}
}

func TestRedisLimiter_EmptyKey(t *testing.T) {
	lim := redisLimiter(t, ratemeter.Config{Capacity: 1})
	if _, err := lim.Allow(context.Background(), ""); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("Allow(\"\") error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestNewRedis_RejectsSubMicrosecondEmission(t *testing.T) {
	// Construction validates before dialing, so no server is needed.
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer client.Close()

	_, err := NewRedis(context.Background(), client, ratemeter.Config{
		Capacity: 1000,
		TimeUnit: time.Microsecond,
	})
	if !errors.Is(err, ratemeter.ErrInvalidTimeUnit) {
		t.Errorf("NewRedis() error = %v, want %v", err, ratemeter.ErrInvalidTimeUnit)
	}
}
