package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcq-study/backend/internal/quiz"
)

// cacheKeyPrefix matches the key convention of the original local cache.
const cacheKeyPrefix = "quiz_progress_"

// SessionCache is the device-local durable cache holding at most one session
// state per (device, chapter).
type SessionCache interface {
	Put(ctx context.Context, deviceID string, st quiz.State) error
	Get(ctx context.Context, deviceID, chapterID string) (quiz.State, bool, error)
	Delete(ctx context.Context, deviceID, chapterID string) error
}

func cacheKey(deviceID, chapterID string) string {
	if deviceID == "" {
		return cacheKeyPrefix + chapterID
	}
	return deviceID + ":" + cacheKeyPrefix + chapterID
}

// MemorySessionCache is an in-memory SessionCache implementation.
type MemorySessionCache struct {
	entries map[string]quiz.State
	mu      sync.RWMutex
}

// NewMemorySessionCache creates a new in-memory session cache.
func NewMemorySessionCache() *MemorySessionCache {
	return &MemorySessionCache{
		entries: make(map[string]quiz.State),
	}
}

func (c *MemorySessionCache) Put(_ context.Context, deviceID string, st quiz.State) error {
	if st.ChapterID == "" {
		return fmt.Errorf("state has no chapter id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(deviceID, st.ChapterID)] = copyState(st)
	return nil
}

func (c *MemorySessionCache) Get(_ context.Context, deviceID, chapterID string) (quiz.State, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	st, ok := c.entries[cacheKey(deviceID, chapterID)]
	if !ok {
		return quiz.State{}, false, nil
	}
	return copyState(st), true, nil
}

func (c *MemorySessionCache) Delete(_ context.Context, deviceID, chapterID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(deviceID, chapterID))
	return nil
}

func copyState(st quiz.State) quiz.State {
	out := st
	out.Answers = make(map[string]quiz.Answer, len(st.Answers))
	for id, ans := range st.Answers {
		out.Answers[id] = ans
	}
	return out
}

// RedisSessionCache is a Redis-backed SessionCache storing JSON blobs with a
// TTL, so stale sessions age out of the cache on their own.
type RedisSessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionCache creates a Redis-backed session cache. Entries expire
// after ttl, which should match the session freshness threshold.
func NewRedisSessionCache(client *redis.Client, ttl time.Duration) *RedisSessionCache {
	return &RedisSessionCache{client: client, ttl: ttl}
}

func (c *RedisSessionCache) Put(ctx context.Context, deviceID string, st quiz.State) error {
	if st.ChapterID == "" {
		return fmt.Errorf("state has no chapter id")
	}
	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(deviceID, st.ChapterID), blob, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache session state: %w", err)
	}
	return nil
}

func (c *RedisSessionCache) Get(ctx context.Context, deviceID, chapterID string) (quiz.State, bool, error) {
	blob, err := c.client.Get(ctx, cacheKey(deviceID, chapterID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return quiz.State{}, false, nil
		}
		return quiz.State{}, false, fmt.Errorf("read cached session: %w", err)
	}

	var st quiz.State
	if err := json.Unmarshal(blob, &st); err != nil {
		return quiz.State{}, false, fmt.Errorf("unmarshal cached session: %w", err)
	}
	return st, true, nil
}

func (c *RedisSessionCache) Delete(ctx context.Context, deviceID, chapterID string) error {
	if err := c.client.Del(ctx, cacheKey(deviceID, chapterID)).Err(); err != nil {
		return fmt.Errorf("delete cached session: %w", err)
	}
	return nil
}
