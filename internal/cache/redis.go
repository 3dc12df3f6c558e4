package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aulacast/backend/internal/models"
)

const lifecycleChannel = "lifecycle"

type RedisClient struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisClient creates a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx := context.Background()

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisClient{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// PublishLifecycleEvent publishes a lifecycle transition to the event feed.
func (r *RedisClient) PublishLifecycleEvent(event models.LifecycleEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, lifecycleChannel, data).Err()
}

// SubscribeToLifecycleEvents subscribes to the lifecycle event feed.
func (r *RedisClient) SubscribeToLifecycleEvents() *redis.PubSub {
	return r.client.Subscribe(r.ctx, lifecycleChannel)
}
