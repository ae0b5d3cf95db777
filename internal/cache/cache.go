package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/therealutkarshpriyadarshi/mediaconv/internal/metrics"
	"github.com/therealutkarshpriyadarshi/mediaconv/pkg/models"
)

const (
	cacheTypeConversion = "conversion"
	cacheTypeReport     = "export_report"
)

// Cache provides caching functionality using Redis
type Cache struct {
	client *redis.Client
}

// NewCache creates a new cache instance
func NewCache(host string, port int, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := &Cache{client: client}
	if err := c.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return c, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// ConversionKey derives the cache key of a converted artifact from the
// source data URL and the conversion kind.
func ConversionKey(kind, dataURL string) string {
	sum := sha256.Sum256([]byte(dataURL))
	return fmt.Sprintf("conversion:%s:%s", kind, hex.EncodeToString(sum[:]))
}

// Conversion Cache Operations

// SetConversion caches a converted media buffer
func (c *Cache) SetConversion(ctx context.Context, kind, dataURL string, buf *models.MediaBuffer, ttl time.Duration) error {
	key := ConversionKey(kind, dataURL)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, "mime", buf.MIMEType, "data", buf.Data)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache conversion: %w", err)
	}
	return nil
}

// GetConversion retrieves a converted media buffer, nil on a miss
func (c *Cache) GetConversion(ctx context.Context, kind, dataURL string) (*models.MediaBuffer, error) {
	fields, err := c.client.HGetAll(ctx, ConversionKey(kind, dataURL)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion from cache: %w", err)
	}

	data, ok := fields["data"]
	if !ok {
		metrics.RecordCacheAccess(cacheTypeConversion, false)
		return nil, nil
	}

	metrics.RecordCacheAccess(cacheTypeConversion, true)
	return models.NewMediaBuffer(fields["mime"], []byte(data)), nil
}

// Export Report Operations

// SetReport caches an export report
func (c *Cache) SetReport(ctx context.Context, report *models.ExportReport, ttl time.Duration) error {
	key := fmt.Sprintf("export:report:%s", report.ID)
	return c.SetWithJSON(ctx, key, report, ttl)
}

// GetReport retrieves an export report from cache
func (c *Cache) GetReport(ctx context.Context, reportID string) (*models.ExportReport, error) {
	key := fmt.Sprintf("export:report:%s", reportID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.RecordCacheAccess(cacheTypeReport, false)
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get report from cache: %w", err)
	}

	var report models.ExportReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	metrics.RecordCacheAccess(cacheTypeReport, true)
	return &report, nil
}

// Stats Cache Operations

// IncrementStat increments a statistic counter and returns its new value
func (c *Cache) IncrementStat(ctx context.Context, stat string) (int64, error) {
	key := fmt.Sprintf("stats:%s", stat)
	return c.client.Incr(ctx, key).Result()
}

// Locking Operations

// AcquireLock attempts to acquire a lock on resource
func (c *Cache) AcquireLock(ctx context.Context, resource string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.SetNX(ctx, key, "locked", ttl).Result()
}

// ReleaseLock releases a lock on resource
func (c *Cache) ReleaseLock(ctx context.Context, resource string) error {
	key := fmt.Sprintf("lock:%s", resource)
	return c.client.Del(ctx, key).Err()
}

// SetWithJSON sets a value with JSON marshaling
func (c *Cache) SetWithJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.client.Set(ctx, key, data, ttl).Err()
}

// Ping checks the Redis connection
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
