package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alpha-radar/src/models"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned when no scan has been cached yet.
var ErrCacheMiss = errors.New("cache miss")

// -----------------------------------------------------------------------------

// RedisSignalCache keeps the latest completed scan in Redis so readers can skip the database.
// Keys:
//
//	<prefix>:signals:latest   JSON array of the scan's signals
//	<prefix>:signal:<symbol>  JSON of one symbol's signal
//	<prefix>:scan:last        JSON of the scan summary
type RedisSignalCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisSignalCache connects and pings the configured server.
func NewRedisSignalCache(cfg models.MRedisConfig) (*RedisSignalCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisSignalCacheWithClient(client, cfg.Prefix, time.Duration(cfg.TTLSeconds)*time.Second), nil
}

// NewRedisSignalCacheWithClient wraps an existing client.
func NewRedisSignalCacheWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisSignalCache {
	if prefix == "" {
		prefix = "alpharadar"
	}
	return &RedisSignalCache{client: client, prefix: prefix, ttl: ttl}
}

// -----------------------------------------------------------------------------

func (c *RedisSignalCache) Name() string {
	return "redis"
}

func (c *RedisSignalCache) key(parts ...string) string {
	k := c.prefix
	for _, p := range parts {
		k += ":" + p
	}
	return k
}

// scanSummary is the cached form of a result without its signal list.
type scanSummary struct {
	ScanID      string            `json:"scan_id"`
	UniverseTag string            `json:"universe_tag"`
	State       models.MScanState `json:"state"`
	Processed   int               `json:"processed"`
	Total       int               `json:"total"`
	SignalCount int               `json:"signal_count"`
	FinishedAt  time.Time         `json:"finished_at"`
}

// cacheEntries renders every key written for one result.
func (c *RedisSignalCache) cacheEntries(result *models.MScanResult) (map[string][]byte, error) {
	entries := make(map[string][]byte, len(result.Signals)+2)

	signals := result.Signals
	if signals == nil {
		signals = []models.MSignal{}
	}
	latest, err := json.Marshal(signals)
	if err != nil {
		return nil, err
	}
	entries[c.key("signals", "latest")] = latest

	for _, s := range result.Signals {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, err
		}
		entries[c.key("signal", s.Symbol)] = data
	}

	summary, err := json.Marshal(scanSummary{
		ScanID:      result.ScanID,
		UniverseTag: result.UniverseTag,
		State:       result.State,
		Processed:   result.Processed,
		Total:       result.Total,
		SignalCount: len(result.Signals),
		FinishedAt:  result.FinishedAt,
	})
	if err != nil {
		return nil, err
	}
	entries[c.key("scan", "last")] = summary

	return entries, nil
}

// -----------------------------------------------------------------------------

// Publish replaces the cached scan in one MULTI/EXEC.
func (c *RedisSignalCache) Publish(ctx context.Context, result *models.MScanResult) error {
	entries, err := c.cacheEntries(result)
	if err != nil {
		return fmt.Errorf("encode scan %s: %w", result.ScanID, err)
	}

	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, data := range entries {
			pipe.Set(ctx, key, data, c.ttl)
		}
		return nil
	})
	return err
}

// Latest returns the cached signals of the last completed scan.
func (c *RedisSignalCache) Latest(ctx context.Context) ([]models.MSignal, error) {
	data, err := c.client.Get(ctx, c.key("signals", "latest")).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var signals []models.MSignal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// Signal returns the cached signal of one symbol.
func (c *RedisSignalCache) Signal(ctx context.Context, symbol string) (*models.MSignal, error) {
	data, err := c.client.Get(ctx, c.key("signal", symbol)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var s models.MSignal
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *RedisSignalCache) Close() error {
	return c.client.Close()
}
