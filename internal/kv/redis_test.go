package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/GiftAdmin/internal/config"
)

func TestNewClientWithoutAddressIsNil(t *testing.T) {
	if client := NewClient(config.RedisConfig{}); client != nil {
		t.Fatalf("expected nil client")
	}
}

func TestDisabledLimiterNeverLocks(t *testing.T) {
	limiter := NewLoginLimiter(nil, config.RedisConfig{LoginMaxAttempts: 1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		locked, err := limiter.RecordFailure(ctx, "admin1")
		if err != nil || locked {
			t.Fatalf("disabled limiter: locked=%v err=%v", locked, err)
		}
	}
	locked, err := limiter.Locked(ctx, "admin1")
	if err != nil || locked {
		t.Fatalf("disabled limiter reported lock: locked=%v err=%v", locked, err)
	}
	limiter.Reset(ctx, "admin1")
}

func TestLimiterSurfacesRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewLoginLimiter(client, config.RedisConfig{LoginMaxAttempts: 3, LoginWindow: time.Minute, LockDuration: time.Minute})

	if _, err := limiter.Locked(context.Background(), "admin1"); err == nil {
		t.Fatalf("expected connection error")
	}
}

func TestKeysKeepUsernameCase(t *testing.T) {
	if lockKey("Admin1") == lockKey("admin1") {
		t.Fatalf("lock keys must not fold case")
	}
	if attemptsKey("Admin1") == lockKey("Admin1") {
		t.Fatalf("attempt and lock keys collide")
	}
}

func newMiniredisLimiter(t *testing.T, cfg config.RedisConfig) (*LoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLoginLimiter(client, cfg), server
}

func TestLimiterLocksAtLimitAndUnlocksAfterLockDuration(t *testing.T) {
	limiter, server := newMiniredisLimiter(t, config.RedisConfig{LoginMaxAttempts: 3, LoginWindow: time.Minute, LockDuration: 5 * time.Minute})
	ctx := context.Background()

	for i := 1; i <= 2; i++ {
		locked, err := limiter.RecordFailure(ctx, "admin1")
		if err != nil || locked {
			t.Fatalf("failure %d: locked=%v err=%v", i, locked, err)
		}
	}
	locked, err := limiter.RecordFailure(ctx, "admin1")
	if err != nil || !locked {
		t.Fatalf("failure 3: expected lock, locked=%v err=%v", locked, err)
	}
	if server.Exists(attemptsKey("admin1")) {
		t.Fatalf("attempt counter should be cleared once locked")
	}

	locked, err = limiter.Locked(ctx, "admin1")
	if err != nil || !locked {
		t.Fatalf("expected admin1 locked, locked=%v err=%v", locked, err)
	}
	other, err := limiter.Locked(ctx, "Admin1")
	if err != nil || other {
		t.Fatalf("differently cased name must not share the lock, locked=%v err=%v", other, err)
	}

	server.FastForward(5*time.Minute + time.Second)
	locked, err = limiter.Locked(ctx, "admin1")
	if err != nil || locked {
		t.Fatalf("expected lock expired, locked=%v err=%v", locked, err)
	}
}

func TestLimiterWindowStartsAtFirstFailure(t *testing.T) {
	limiter, server := newMiniredisLimiter(t, config.RedisConfig{LoginMaxAttempts: 3, LoginWindow: time.Minute, LockDuration: time.Minute})
	ctx := context.Background()

	if _, err := limiter.RecordFailure(ctx, "admin1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	server.FastForward(40 * time.Second)
	if _, err := limiter.RecordFailure(ctx, "admin1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	if ttl := server.TTL(attemptsKey("admin1")); ttl > 20*time.Second || ttl <= 0 {
		t.Fatalf("second failure must not extend the window, ttl=%s", ttl)
	}

	server.FastForward(21 * time.Second)
	locked, err := limiter.RecordFailure(ctx, "admin1")
	if err != nil || locked {
		t.Fatalf("window expired, expected a fresh count: locked=%v err=%v", locked, err)
	}
}

func TestLimiterResetClearsAttempts(t *testing.T) {
	limiter, server := newMiniredisLimiter(t, config.RedisConfig{LoginMaxAttempts: 2, LoginWindow: time.Minute, LockDuration: time.Minute})
	ctx := context.Background()

	if _, err := limiter.RecordFailure(ctx, "admin1"); err != nil {
		t.Fatalf("record: %v", err)
	}
	limiter.Reset(ctx, "admin1")
	if server.Exists(attemptsKey("admin1")) {
		t.Fatalf("reset should delete the attempt counter")
	}
	locked, err := limiter.RecordFailure(ctx, "admin1")
	if err != nil || locked {
		t.Fatalf("count should restart after reset: locked=%v err=%v", locked, err)
	}
}
