// File: utils/cache.go
package utils

import (
	"context"
	"fmt"
	"time"

	"ambulance/config"

	"github.com/go-redis/redis/v8"
)

var (
	// SessionCacheClient holds signed-in sessions.
	SessionCacheClient *redis.Client
)

// InitSessionCache connects the Redis client used for sessions.
func InitSessionCache() error {
	client := redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSessionDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis (sessions): %w", err)
	}
	SessionCacheClient = client
	return nil
}

// GetSessionCacheClient returns the Redis client for sessions, or nil if it was
// never initialized.
func GetSessionCacheClient() *redis.Client {
	return SessionCacheClient
}
