// internal/state/redis.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/domipancho/courier-tracker/internal/reporter"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
	HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Close() error
}

// RedisStore keeps tracking state in one hash plus one key per provider.
type RedisStore struct {
	client RedisClient
	prefix string
}

func NewRedisStore(client RedisClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "courier-tracker"
	}
	return &RedisStore{client: client, prefix: prefix}
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, addr, password string, db int, prefix string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedisStore(client, prefix), nil
}

func (r *RedisStore) stateKey() string {
	return r.prefix + ":tracking"
}

func (r *RedisStore) lastKnownKey(p reporter.Provider) string {
	return fmt.Sprintf("%s:last_known:%s", r.prefix, p)
}

func (r *RedisStore) field(ctx context.Context, name string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.stateKey(), name).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *RedisStore) SetTrackingActive(ctx context.Context, active bool) error {
	return r.client.HSet(ctx, r.stateKey(),
		keyTrackingActive, strconv.FormatBool(active),
		keyLastUpdate, strconv.FormatInt(time.Now().UnixMilli(), 10),
	).Err()
}

func (r *RedisStore) TrackingActive(ctx context.Context) (bool, error) {
	v, ok, err := r.field(ctx, keyTrackingActive)
	if err != nil || !ok {
		return false, err
	}
	return strconv.ParseBool(v)
}

func (r *RedisStore) SetActiveOrder(ctx context.Context, orderID int64) error {
	return r.client.HSet(ctx, r.stateKey(), keyActiveOrder, strconv.FormatInt(orderID, 10)).Err()
}

func (r *RedisStore) ActiveOrder(ctx context.Context) (int64, error) {
	v, ok, err := r.field(ctx, keyActiveOrder)
	if err != nil || !ok {
		return 0, err
	}
	return strconv.ParseInt(v, 10, 64)
}

func (r *RedisStore) LastUpdate(ctx context.Context) (time.Time, error) {
	v, ok, err := r.field(ctx, keyLastUpdate)
	if err != nil || !ok {
		return time.Time{}, err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	return r.client.HSet(ctx, r.stateKey(),
		keyTrackingActive, "false",
		keyActiveOrder, "0",
	).Err()
}

type lastKnownRecord struct {
	Latitude   float64 `json:"lat"`
	Longitude  float64 `json:"lon"`
	Accuracy   float64 `json:"accuracy"`
	CapturedAt int64   `json:"captured_at"`
}

func (r *RedisStore) SaveLastKnown(ctx context.Context, s reporter.PositionSample) error {
	data, err := json.Marshal(lastKnownRecord{
		Latitude:   s.Latitude,
		Longitude:  s.Longitude,
		Accuracy:   s.AccuracyMeters,
		CapturedAt: s.CapturedAt,
	})
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.lastKnownKey(s.Provider), data, 0).Err()
}

func (r *RedisStore) LastKnown(ctx context.Context, p reporter.Provider) (reporter.PositionSample, bool, error) {
	data, err := r.client.Get(ctx, r.lastKnownKey(p)).Bytes()
	if err == redis.Nil {
		return reporter.PositionSample{}, false, nil
	}
	if err != nil {
		return reporter.PositionSample{}, false, err
	}
	var rec lastKnownRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return reporter.PositionSample{}, false, err
	}
	return reporter.PositionSample{
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		AccuracyMeters: rec.Accuracy,
		Provider:       p,
		CapturedAt:     rec.CapturedAt,
	}, true, nil
}

func (r *RedisStore) Close() error { return r.client.Close() }
