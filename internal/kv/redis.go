package kv

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/router-for-me/GiftAdmin/internal/config"
)

const keyPrefix = "giftadmin:login:"

// NewClient returns a redis client for cfg, or nil when no address is configured.
func NewClient(cfg config.RedisConfig) *redis.Client {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil
	}
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		if opt, errParse := redis.ParseURL(addr); errParse == nil {
			return redis.NewClient(opt)
		}
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
}

// LoginLimiter counts failed logins per username and locks the name once the
// count reaches the limit within the window. Usernames are keyed exactly as
// given, matching the case-sensitive account lookup. A nil client disables it.
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int64
	window      time.Duration
	lock        time.Duration
}

// NewLoginLimiter constructs a LoginLimiter.
func NewLoginLimiter(client *redis.Client, cfg config.RedisConfig) *LoginLimiter {
	return &LoginLimiter{
		client:      client,
		maxAttempts: int64(cfg.LoginMaxAttempts),
		window:      cfg.LoginWindow,
		lock:        cfg.LockDuration,
	}
}

// Enabled reports whether a redis client backs the limiter.
func (l *LoginLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Locked reports whether username is currently locked out.
func (l *LoginLimiter) Locked(ctx context.Context, username string) (bool, error) {
	if !l.Enabled() {
		return false, nil
	}
	_, err := l.client.Get(ctx, lockKey(username)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RecordFailure counts a failed attempt and reports whether it triggered a
// lock. The counting window is fixed: it starts at the first failure and is
// not extended by later ones.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) (bool, error) {
	if !l.Enabled() {
		return false, nil
	}
	attempts, err := l.client.Incr(ctx, attemptsKey(username)).Result()
	if err != nil {
		return false, err
	}
	if attempts == 1 {
		if err := l.client.Expire(ctx, attemptsKey(username), l.window).Err(); err != nil {
			return false, err
		}
	}
	if attempts < l.maxAttempts {
		return false, nil
	}
	if err := l.client.Set(ctx, lockKey(username), "1", l.lock).Err(); err != nil {
		return false, err
	}
	_ = l.client.Del(ctx, attemptsKey(username)).Err()
	return true, nil
}

// Reset clears the failure counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username string) {
	if !l.Enabled() {
		return
	}
	_ = l.client.Del(ctx, attemptsKey(username)).Err()
}

func attemptsKey(username string) string {
	return keyPrefix + "attempts:" + username
}

func lockKey(username string) string {
	return keyPrefix + "lock:" + username
}
