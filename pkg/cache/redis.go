package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/festival-scheduler-api/pkg/config"
)

// NewRedis returns a configured Redis client, or nil when caching is disabled.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}

	return client, nil
}

// ScheduleKey is the cache key of a rendered schedule version.
func ScheduleKey(competition string, version int, editable bool) string {
	mode := "view"
	if editable {
		mode = "edit"
	}
	return fmt.Sprintf("festival:schedule:%s:v%d:%s", competition, version, mode)
}

// SchedulePattern matches every cached rendering of a competition.
func SchedulePattern(competition string) string {
	return fmt.Sprintf("festival:schedule:%s:*", competition)
}
