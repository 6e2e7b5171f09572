package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotConfigured is returned by Initialize when REDIS_URL is empty.
var ErrNotConfigured = errors.New("redis: REDIS_URL not configured")

var (
	mu     sync.RWMutex
	client *redis.Client
)

// Config holds Redis connection configuration
type Config struct {
	URL      string // redis://host:port or rediss://host:port for TLS
	Password string // overrides the password embedded in URL
}

// Client returns the shared client, or nil when Redis is not in use.
func Client() *redis.Client {
	mu.RLock()
	defer mu.RUnlock()
	return client
}

// Options turns Config into go-redis options.
func (cfg Config) Options() (*redis.Options, error) {
	if cfg.URL == "" {
		return nil, ErrNotConfigured
	}
	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	if parsedURL.Scheme != "redis" && parsedURL.Scheme != "rediss" {
		return nil, fmt.Errorf("redis: unsupported scheme %q", parsedURL.Scheme)
	}

	useTLS := parsedURL.Scheme == "rediss"
	addr := parsedURL.Host
	if parsedURL.Port() == "" {
		addr = parsedURL.Hostname() + ":6379"
	}

	password := cfg.Password
	if password == "" && parsedURL.User != nil {
		password, _ = parsedURL.User.Password()
	}

	opts := &redis.Options{
		Addr:         addr,
		Password:     password,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		PoolSize:     10,
	}
	if useTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts, nil
}

// Initialize connects the shared client. On failure the shared client stays nil
// and callers fall back to in-process state.
func Initialize(ctx context.Context, cfg Config) error {
	opts, err := cfg.Options()
	if err != nil {
		return err
	}

	c := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.Ping(pingCtx).Err(); err != nil {
		_ = c.Close()
		return fmt.Errorf("redis: connection failed: %w", err)
	}

	mu.Lock()
	client = c
	mu.Unlock()
	return nil
}

// Close closes the shared client.
func Close() error {
	mu.Lock()
	c := client
	client = nil
	mu.Unlock()
	if c != nil {
		return c.Close()
	}
	return nil
}

// HealthCheck pings the shared client.
func HealthCheck(ctx context.Context) error {
	c := Client()
	if c == nil {
		return errors.New("redis: client not initialized")
	}
	return c.Ping(ctx).Err()
}
