package reports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/qbimport/internal/core"
)

const defaultPrefix = "qbimport:reports"

// Redis stores each report as a JSON string with a TTL and indexes run ids
// in a sorted set scored by start time.
type Redis struct {
	Client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ core.ReportStore = (*Redis)(nil)

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return opts, nil
}

// Dial connects to url with fixed timeouts and verifies the connection.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewRedis connects to url and keeps reports for ttl.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*Redis, error) {
	client, err := Dial(ctx, url)
	if err != nil {
		return nil, err
	}
	return &Redis{Client: client, ttl: ttl, prefix: defaultPrefix}, nil
}

func (r *Redis) key(runID string) string {
	return r.prefix + ":" + runID
}

func (r *Redis) indexKey() string {
	return r.prefix + ":index"
}

// Save stores the report with the configured TTL and indexes it by start time.
func (r *Redis) Save(ctx context.Context, res *core.Result) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(res.RunID), payload, r.ttl)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(res.StartedAt.UnixNano()),
			Member: res.RunID,
		})
		if r.ttl > 0 {
			cutoff := time.Now().Add(-r.ttl).UnixNano()
			pipe.ZRemRangeByScore(ctx, r.indexKey(), "-inf", fmt.Sprintf("(%d", cutoff))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

// Get returns the stored report or core.ErrRunNotFound.
func (r *Redis) Get(ctx context.Context, runID string) (*core.Result, error) {
	payload, err := r.Client.Get(ctx, r.key(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrRunNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	var res core.Result
	if err := json.Unmarshal(payload, &res); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	return &res, nil
}

// List returns up to limit reports, newest first. Index entries whose
// report has expired are removed.
func (r *Redis) List(ctx context.Context, limit int) ([]*core.Result, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := r.Client.ZRevRange(ctx, r.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.Client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}

	out := make([]*core.Result, 0, len(values))
	var stale []any
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var res core.Result
		if err := json.Unmarshal([]byte(s), &res); err != nil {
			return nil, fmt.Errorf("decode report %s: %w", ids[i], err)
		}
		out = append(out, &res)
	}
	if len(stale) > 0 {
		_ = r.Client.ZRem(ctx, r.indexKey(), stale...).Err()
	}
	return out, nil
}

// HealthCheck verifies the redis connection is alive.
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// Close closes the redis client.
func (r *Redis) Close() error {
	return r.Client.Close()
}
