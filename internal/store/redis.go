package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

const photoStashPrefix = "attendance:photo:"

// ErrPhotoExpired is returned when a stashed photo is gone before the worker
// picked it up.
var ErrPhotoExpired = errors.New("stashed photo not found or expired")

// StashPhoto parks raw photo bytes under a TTL key so the archive worker can
// upload them out of the request path.
func (r *Redis) StashPhoto(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, photoStashPrefix+key, data, ttl).Err()
}

// FetchPhoto retrieves stashed photo bytes.
func (r *Redis) FetchPhoto(ctx context.Context, key string) ([]byte, error) {
	data, err := r.Client.Get(ctx, photoStashPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrPhotoExpired
	}
	return data, err
}

// DropPhoto removes a stashed photo after it has been archived.
func (r *Redis) DropPhoto(ctx context.Context, key string) error {
	return r.Client.Del(ctx, photoStashPrefix+key).Err()
}
