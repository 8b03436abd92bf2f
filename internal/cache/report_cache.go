package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andresuchdata/rlqty/internal/config"
	"github.com/andresuchdata/rlqty/internal/domain"
)

const (
	reportKeyPrefix     = "rlqty:report"
	reportScanBatchSize = 100
)

// ReportCache stores finished reports keyed by input fingerprint and options.
type ReportCache interface {
	Get(ctx context.Context, fingerprint string, opts domain.PlanOptions) (*domain.Report, bool, error)
	Set(ctx context.Context, fingerprint string, report *domain.Report) error
	InvalidateAll(ctx context.Context) error
}

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

type noopReportCache struct{}

// NewReportCache returns a redis-backed cache, or a no-op one when client is nil.
func NewReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	if client == nil {
		return &noopReportCache{}
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &redisReportCache{client: client, ttl: ttl}
}

// NewFromConfig connects to redis when caching is enabled. The client is
// returned as well so other components can share it; it is nil when disabled.
func NewFromConfig(cfg config.CacheConfig) (ReportCache, *redis.Client, error) {
	if !cfg.Enabled {
		return &noopReportCache{}, nil, nil
	}
	client, err := NewRedisClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewReportCache(client, reportTTL(cfg)), client, nil
}

func NewNoopReportCache() ReportCache {
	return &noopReportCache{}
}

func (c *redisReportCache) Get(ctx context.Context, fingerprint string, opts domain.PlanOptions) (*domain.Report, bool, error) {
	if fingerprint == "" {
		return nil, false, nil
	}
	key := buildReportKey(fingerprint, opts)

	payload, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, false, fmt.Errorf("decode report cache: %w", err)
	}
	return &report, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, fingerprint string, report *domain.Report) error {
	if fingerprint == "" {
		return nil
	}
	key := buildReportKey(fingerprint, report.Options)
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report cache: %w", err)
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *redisReportCache) InvalidateAll(ctx context.Context) error {
	return unlinkMatching(ctx, c.client, reportKeyPrefix, reportScanBatchSize)
}

func (n *noopReportCache) Get(ctx context.Context, fingerprint string, opts domain.PlanOptions) (*domain.Report, bool, error) {
	return nil, false, nil
}

func (n *noopReportCache) Set(ctx context.Context, fingerprint string, report *domain.Report) error {
	return nil
}

func (n *noopReportCache) InvalidateAll(ctx context.Context) error {
	return nil
}

func buildReportKey(fingerprint string, opts domain.PlanOptions) string {
	return fmt.Sprintf("%s:%s", reportKeyPrefix, reportHash(fingerprint, opts))
}

func reportHash(fingerprint string, opts domain.PlanOptions) string {
	mode := opts.ElapsedMode
	if mode == "" {
		mode = domain.ElapsedCoverage
	}
	parts := []string{
		"inputs=" + fingerprint,
		"reference_date=" + opts.ReferenceDate.Format("2006-01-02"),
		"cycles=" + strconv.Itoa(opts.Cycles),
		"elapsed_mode=" + strings.ToLower(string(mode)),
		"clamp_negative=" + strconv.FormatBool(opts.ClampNegative),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
