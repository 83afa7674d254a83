package skills

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/redis/go-redis/v9"
)

// RedisCache mirrors a Library's snapshot into Redis so multiple
// orchestrator processes sharing one Redis instance see a consistent view
// without each re-parsing skills.json on every lookup. It is an optional
// ambient cache, not the authoritative store — the JSON file remains
// authoritative per spec.md §6.
type RedisCache struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisCache wraps an existing redis client.
func NewRedisCache(client *redis.Client, key string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, key: key, ttl: ttl}
}

// Refresh pushes the library's current snapshot into Redis.
func (c *RedisCache) Refresh(ctx context.Context, lib *Library) error {
	lib.mu.RLock()
	out := make([]Skill, 0, len(lib.skills))
	for _, s := range lib.skills {
		out = append(out, *s)
	}
	lib.mu.RUnlock()

	data, err := json.Marshal(out)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key, data, c.ttl).Err()
}

// Snapshot reads the cached skill set back, for readers that don't hold the
// in-process Library (e.g. a dashboard process).
func (c *RedisCache) Snapshot(ctx context.Context) ([]Skill, error) {
	data, err := c.client.Get(ctx, c.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var out []Skill
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchReload watches the library's backing file for external edits
// (another process's Save, or an operator hand-editing skills.json) and
// reloads it in place. The returned stop func closes the underlying
// watcher; callers should run WatchReload in its own goroutine.
func WatchReload(lib *Library, onReload func(error)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(lib.path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				reloaded, err := Load(Config{Path: lib.path, MinSamples: lib.minSamples, MinConfidence: lib.minConfidence})
				if err != nil {
					if onReload != nil {
						onReload(err)
					}
					continue
				}
				lib.mu.Lock()
				lib.skills = reloaded.skills
				lib.mu.Unlock()
				if onReload != nil {
					onReload(nil)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if onReload != nil {
					onReload(err)
				}
			}
		}
	}()

	return watcher.Close, nil
}
