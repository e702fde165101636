package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStatsStore struct {
	rdb    *redis.Client
	prefix string
	// ttl applies to the per-minute buckets only; totals never expire.
	ttl time.Duration
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "admission:stats",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}

	field := "denied"
	if ev.Allowed {
		field = "allowed"
	}

	totalKey := s.TotalKey(ev.Resource)
	bucketKey := s.BucketKey(ev.Resource, at)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, totalKey, field, 1)
	if !ev.Allowed && ev.Reason != "" {
		pipe.HIncrBy(ctx, totalKey, "reason:"+string(ev.Reason), 1)
	}
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) TotalKey(resource string) string {
	return s.prefix + ":" + resource + ":total"
}

// BucketKey names the per-minute counter hash holding at.
func (s *RedisStatsStore) BucketKey(resource string, at time.Time) string {
	return fmt.Sprintf("%s:%s:minute:%s", s.prefix, resource, at.UTC().Format("200601021504"))
}
