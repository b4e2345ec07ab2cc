package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/kubo-market/minio-sentinel/internal/domain"
)

const (
	keyPrefix = "sentinel:samples:"
	// maxEntries caps each metric's list; at a 60s tick a 24h window needs
	// 1440 entries, so this leaves headroom for shorter intervals.
	maxEntries = 5000
)

// RedisStore journals recorded samples so a restarted process can rebuild
// its rolling windows without waiting out the learning phase. Everything
// here is best-effort: failures degrade to in-memory operation only.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(addr string, retention time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       addr,
		MaxRetries: 3,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client, retention: retention}, nil
}

// Append journals one sample at the tail of the metric's list. The list is
// trimmed to a bounded length and expires if the daemon stops writing.
func (s *RedisStore) Append(ctx context.Context, metric string, smp domain.Sample) error {
	data, err := json.Marshal(smp)
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}

	key := keyPrefix + metric
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxEntries, -1)
	pipe.Expire(ctx, key, s.retention*2)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append sample: %w", err)
	}
	return nil
}

// Load returns the journaled samples for a metric that still fall inside
// the retention window, oldest first. Corrupt entries are skipped.
func (s *RedisStore) Load(ctx context.Context, metric string) ([]domain.Sample, error) {
	entries, err := s.client.LRange(ctx, keyPrefix+metric, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load samples: %w", err)
	}

	cutoff := time.Now().Add(-s.retention)
	var samples []domain.Sample
	for _, entry := range entries {
		var smp domain.Sample
		if err := json.Unmarshal([]byte(entry), &smp); err != nil {
			continue
		}
		if smp.Timestamp.Before(cutoff) {
			continue
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
