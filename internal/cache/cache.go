package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/therealutkarshpriyadarshi/chzzkdl/internal/metrics"
	"github.com/therealutkarshpriyadarshi/chzzkdl/pkg/models"
)

// Cache keeps fetched platform metadata in Redis
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a new cache instance. Entries expire after ttl; zero
// keeps them until evicted.
func NewCache(host string, port int, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, ttl: ttl}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Ping checks the connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func videoKey(id string) string { return fmt.Sprintf("video:info:%s", id) }
func clipKey(id string) string  { return fmt.Sprintf("clip:info:%s", id) }

// SetVideoInfo caches video metadata
func (c *Cache) SetVideoInfo(ctx context.Context, videoID string, info *models.VideoInfo) error {
	return c.setJSON(ctx, videoKey(videoID), info)
}

// GetVideoInfo returns cached video metadata, or nil on a miss
func (c *Cache) GetVideoInfo(ctx context.Context, videoID string) (*models.VideoInfo, error) {
	var info models.VideoInfo
	found, err := c.getJSON(ctx, "video", videoKey(videoID), &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// SetClipInfo caches clip metadata
func (c *Cache) SetClipInfo(ctx context.Context, clipID string, info *models.ClipInfo) error {
	return c.setJSON(ctx, clipKey(clipID), info)
}

// GetClipInfo returns cached clip metadata, or nil on a miss
func (c *Cache) GetClipInfo(ctx context.Context, clipID string) (*models.ClipInfo, error) {
	var info models.ClipInfo
	found, err := c.getJSON(ctx, "clip", clipKey(clipID), &info)
	if err != nil || !found {
		return nil, err
	}
	return &info, nil
}

// Invalidate removes both cached entries for id
func (c *Cache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, videoKey(id), clipKey(id)).Err()
}

func (c *Cache) setJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *Cache) getJSON(ctx context.Context, cacheType, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheAccess(cacheType, false)
			return false, nil
		}
		return false, fmt.Errorf("failed to get value from cache: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal value: %w", err)
	}
	metrics.RecordCacheAccess(cacheType, true)
	return true, nil
}
