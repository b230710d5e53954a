package store

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// ChangeStream is the Redis stream carrying row-change events. Realtime
// consumers (document/task views) tail it; reconnection and backlog handling
// are theirs.
const ChangeStream = "caseflow:changes"

// ChangeEvent one row-level change.
type ChangeEvent struct {
	Entity   string `json:"entity"`    // "clients", "tasks", ...
	Action   string `json:"action"`    // "create" | "update" | "delete"
	RecordID string `json:"record_id"`
}

// Feed publishes change events. Publishing is best-effort; callers log and
// continue on error.
type Feed interface {
	Publish(ctx context.Context, ev ChangeEvent) error
}

// RedisFeed Feed over Redis Streams (XADD).
type RedisFeed struct {
	c *redis.Client
}

func NewRedisFeed(c *redis.Client) *RedisFeed { return &RedisFeed{c: c} }

func (f *RedisFeed) Publish(ctx context.Context, ev ChangeEvent) error {
	return f.c.XAdd(ctx, &redis.XAddArgs{
		Stream: ChangeStream,
		Values: map[string]interface{}{
			"entity":    ev.Entity,
			"action":    ev.Action,
			"record_id": ev.RecordID,
			"timestamp": time.Now().Unix(),
		},
	}).Err()
}

// MemoryFeed records events in memory. Used by tests and the Redis-less dev
// path.
type MemoryFeed struct {
	mu     sync.Mutex
	events []ChangeEvent
}

func NewMemoryFeed() *MemoryFeed { return &MemoryFeed{} }

func (f *MemoryFeed) Publish(_ context.Context, ev ChangeEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return nil
}

func (f *MemoryFeed) Events() []ChangeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ChangeEvent(nil), f.events...)
}
