package cache

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/rlqty/internal/config"
)

const (
	defaultCacheTTL = 5 * time.Minute
	pingTimeout     = 5 * time.Second
	redisIOTimeout = 3 * time.Second
)

// NewRedisClient connects and pings redis using the cache section.
func NewRedisClient(cfg config.CacheConfig) (*redis.Client, error) {
	opts, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("report cache unreachable at %s: %w", opts.Addr, err)
	}
	return client, nil
}

func reportTTL(cfg config.CacheConfig) time.Duration {
	if cfg.ReportTTL <= 0 {
		return defaultCacheTTL
	}
	return time.Duration(cfg.ReportTTL) * time.Second
}

// redisOptions prefers REDIS_URL; otherwise it assembles host, port, password
// and db, falling back to a local redis.
func redisOptions(cfg config.CacheConfig) (*redis.Options, error) {
	var opts *redis.Options
	if cfg.RedisURL != "" {
		parsed, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		opts = parsed
	} else {
		opts = &redis.Options{
			Addr:     net.JoinHostPort(orDefault(cfg.RedisHost, "127.0.0.1"), orDefault(cfg.RedisPort, "6379")),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
	}
	opts.ReadTimeout = redisIOTimeout
	opts.WriteTimeout = redisIOTimeout
	return opts, nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// unlinkMatching removes every key under prefix, batch keys per UNLINK.
func unlinkMatching(ctx context.Context, client *redis.Client, prefix string, batch int64) error {
	iter := client.Scan(ctx, 0, prefix+"*", batch).Iterator()
	keys := make([]string, 0, batch)
	flush := func() error {
		if len(keys) == 0 {
			return nil
		}
		if err := client.Unlink(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("unlink cached reports: %w", err)
		}
		keys = keys[:0]
		return nil
	}

	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if int64(len(keys)) >= batch {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan cached reports: %w", err)
	}
	return flush()
}
