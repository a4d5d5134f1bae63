// Package lyricscache stores fetched lyric text keyed by track ID. Redis
// is the fast layer when configured; a directory of .lrc files is always
// kept as the durable fallback, so a missing redis only costs latency.
package lyricscache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

var logger = log.With().Str("component", "lyricscache").Logger()

var unsafeChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// Cache is safe for use from multiple goroutines.
type Cache struct {
	rdb *redis.Client // nil when redis is not configured or unreachable
	dir string
	ttl time.Duration
}

// Options configures the cache layers.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	Dir           string
}

// New builds the cache. A failing redis connection is logged and the cache
// degrades to files only; the directory is created eagerly.
func New(opts Options) (*Cache, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", opts.Dir, err)
	}

	c := &Cache{dir: opts.Dir, ttl: opts.TTL}

	if opts.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.RedisAddr).Msg("Redis unreachable, using file cache only")
			rdb.Close()
		} else {
			c.rdb = rdb
			logger.Info().Str("addr", opts.RedisAddr).Msg("Redis cache layer enabled")
		}
	}

	return c, nil
}

func redisKey(trackID string) string {
	return "lyrics:" + trackID
}

func (c *Cache) filePath(trackID string) string {
	return filepath.Join(c.dir, unsafeChars.ReplaceAllString(trackID, "-")+".lrc")
}

// Get returns cached lyric text for a track and whether it was present.
func (c *Cache) Get(ctx context.Context, trackID string) (string, bool) {
	if c.rdb != nil {
		result := c.rdb.Get(ctx, redisKey(trackID))
		if result.Err() == nil {
			logger.Debug().Str("track_id", trackID).Msg("Cache hit (redis)")
			return result.Val(), true
		}
		if result.Err() != redis.Nil {
			logger.Warn().Err(result.Err()).Msg("Redis get failed")
		}
	}

	content, err := os.ReadFile(c.filePath(trackID))
	if err != nil {
		return "", false
	}
	logger.Debug().Str("track_id", trackID).Msg("Cache hit (file)")

	// Refill the fast layer so the next lookup skips the disk.
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, redisKey(trackID), string(content), c.ttl).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis refill failed")
		}
	}
	return string(content), true
}

// Put stores lyric text in both layers. Failures are logged, never fatal;
// the cache is an optimization, not a source of truth.
func (c *Cache) Put(ctx context.Context, trackID, text string) {
	if text == "" {
		return
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, redisKey(trackID), text, c.ttl).Err(); err != nil {
			logger.Warn().Err(err).Msg("Redis set failed")
		}
	}

	path := c.filePath(trackID)
	if err := writeFileOverwrite(path, []byte(text), 0644); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to write cache file")
	}
}

// Close releases the redis connection if one is held.
func (c *Cache) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

func writeFileOverwrite(path string, content []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		return fmt.Errorf("failed to write to file %s: %w", path, err)
	}
	return nil
}
