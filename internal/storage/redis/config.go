package redis

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection and retention settings
type Config struct {
	// URL is a redis:// or rediss:// connection URL
	URL string

	PoolSize     int
	MinIdleConns int

	// PingTimeout bounds the connectivity check made by New
	PingTimeout time.Duration

	// GuestUserTTL expires guest accounts; registered users never expire.
	// Progress, team and system records are kept indefinitely.
	GuestUserTTL time.Duration
}

// DefaultConfig returns the pool and retention settings used in production
func DefaultConfig() Config {
	return Config{
		URL:          "redis://localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PingTimeout:  5 * time.Second,
		GuestUserTTL: 30 * 24 * time.Hour,
	}
}

// Options turns the config into client options. Pool sizes in the URL
// query are overridden by the config fields when those are set.
func (c Config) Options() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if c.PoolSize > 0 {
		opts.PoolSize = c.PoolSize
	}
	if c.MinIdleConns > 0 {
		opts.MinIdleConns = c.MinIdleConns
	}
	return opts, nil
}
