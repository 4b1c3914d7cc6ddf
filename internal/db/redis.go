package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ConnectRedis parses a redis:// or rediss:// URL (a bare host:port is also
// accepted), pings the server and returns the client.
func ConnectRedis(ctx context.Context, rawURL string) (*goredis.Client, error) {
	raw := strings.TrimSpace(rawURL)
	if raw == "" {
		return nil, fmt.Errorf("missing REDIS_URL")
	}
	if !strings.Contains(raw, "://") {
		raw = "redis://" + raw
	}
	opts, err := goredis.ParseURL(raw)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = pingTimeout
	}

	rdb := goredis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// CloseRedis closes rdb and waits at most timeout for pending commands.
func CloseRedis(rdb *goredis.Client, timeout time.Duration) error {
	if rdb == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- rdb.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("redis close timed out after %s", timeout)
	}
}
