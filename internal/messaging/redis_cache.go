/*
Copyright (c) 2025 QuillScribe contributors

Licensed under the MIT License.
This file is part of QuillScribe.
*/

package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/theguy000/QuillScribe/internal/config"
	"github.com/theguy000/QuillScribe/internal/events"
	"github.com/theguy000/QuillScribe/internal/logging"
)

// recentTranscriptsCap bounds the per-instance recent list in Redis
const recentTranscriptsCap = 100

// RedisCache mirrors recent transcripts into Redis so other desktop tools
// can read them, and announces new transcripts on a pub/sub channel
type RedisCache struct {
	client  *redis.Client
	prefix  string
	channel string
}

// NewRedisCache connects to Redis. Returns nil when no address is
// configured, which callers treat as "caching disabled".
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	if cfg.Addr == "" {
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr: cfg.Addr,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "quillscribe:"
	}
	channel := cfg.Channel
	if channel == "" {
		channel = "quillscribe.transcripts"
	}

	logging.Sugar.Infow("✅ Connected to Redis", "addr", cfg.Addr)
	return &RedisCache{
		client:  client,
		prefix:  prefix,
		channel: channel,
	}, nil
}

// StoreTranscript caches a transcription event and publishes it on the
// transcript channel
func (rc *RedisCache) StoreTranscript(ctx context.Context, event *events.TranscriptionEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transcription event: %w", err)
	}

	key := rc.prefix + "recent"
	pipe := rc.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, recentTranscriptsCap-1)
	pipe.HSet(ctx, rc.prefix+"sessions", event.SessionID, data)
	pipe.Publish(ctx, rc.channel, data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache transcript: %w", err)
	}

	return nil
}

// RecentTranscripts returns up to limit cached transcripts, newest first
func (rc *RedisCache) RecentTranscripts(ctx context.Context, limit int) ([]*events.TranscriptionEvent, error) {
	if limit <= 0 {
		limit = 10
	}

	raw, err := rc.client.LRange(ctx, rc.prefix+"recent", 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent transcripts: %w", err)
	}

	var list []*events.TranscriptionEvent
	for _, item := range raw {
		var event events.TranscriptionEvent
		if err := json.Unmarshal([]byte(item), &event); err != nil {
			logging.Sugar.Warnw("Skipping malformed cached transcript", "error", err)
			continue
		}
		list = append(list, &event)
	}

	return list, nil
}

// LastForSession returns the most recent cached transcript for a session
func (rc *RedisCache) LastForSession(ctx context.Context, sessionID string) (*events.TranscriptionEvent, error) {
	raw, err := rc.client.HGet(ctx, rc.prefix+"sessions", sessionID).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("no cached transcript for session %q", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session transcript: %w", err)
	}

	var event events.TranscriptionEvent
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return nil, fmt.Errorf("failed to parse cached transcript: %w", err)
	}
	return &event, nil
}

// Ping checks the Redis connection
func (rc *RedisCache) Ping(ctx context.Context) error {
	return rc.client.Ping(ctx).Err()
}

// Close releases the Redis connection
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}
