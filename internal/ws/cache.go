package ws

import (
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCacheCapacity bounds the number of retained entries (FIFO).
	DefaultCacheCapacity = 50
	// DefaultCacheTTL is how long an entry stays replayable.
	DefaultCacheTTL = 5 * time.Minute
	// replayLimit is the size of the replay window handed to a new
	// subscriber: the most recent entries, before topic filtering.
	replayLimit = 10
)

// CacheEntry is one dispatched event retained for replay. Entries are never
// mutated after creation.
type CacheEntry struct {
	Topic    string
	Event    string
	Data     map[string]interface{}
	CachedAt time.Time
}

// ReplayCache is a bounded, time-expiring ring of recently dispatched
// events. It exists for short-horizon catch-up on (re)subscribe, not as an
// audit log: capacity keeps memory flat, the TTL keeps replays fresh.
type ReplayCache struct {
	mu       sync.Mutex
	entries  []CacheEntry
	capacity int
	ttl      time.Duration
}

// NewReplayCache creates a ReplayCache. Non-positive capacity or TTL fall
// back to the defaults.
func NewReplayCache(capacity int, ttl time.Duration) *ReplayCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ReplayCache{capacity: capacity, ttl: ttl}
}

// Record appends an entry, evicting the oldest once capacity is exceeded.
func (c *ReplayCache) Record(topic, event string, data map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, CacheEntry{
		Topic:    topic,
		Event:    event,
		Data:     data,
		CachedAt: time.Now().UTC(),
	})
	if len(c.entries) > c.capacity {
		c.entries = c.entries[len(c.entries)-c.capacity:]
	}
}

// SweepExpired drops entries older than the TTL. It is invoked
// opportunistically (on each new connection) rather than on a timer, so
// worst-case staleness is bounded by connection cadence.
func (c *ReplayCache) SweepExpired() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.entries[:0]
	for _, e := range c.entries {
		if now.Sub(e.CachedAt) < c.ttl {
			kept = append(kept, e)
		}
	}
	c.entries = kept
}

// Query returns the entries a new subscriber of topic should be replayed,
// oldest first: the most recent entries (at most replayLimit), unfiltered
// for the supervisory topic, otherwise narrowed to entries whose topic
// matches exactly or whose payload carries the entity id embedded in the
// topic string. The embedded-id match lets entries cached under the
// supervisory topic reach entity-scoped subscribers without double-writing;
// it also requires the cached event name to carry the topic's entity kind,
// so a courier event for id "1" never replays to an order:1 subscriber.
func (c *ReplayCache) Query(topic string) []CacheEntry {
	c.mu.Lock()
	recent := c.entries
	if len(recent) > replayLimit {
		recent = recent[len(recent)-replayLimit:]
	}
	window := make([]CacheEntry, len(recent))
	copy(window, recent)
	c.mu.Unlock()

	if topic == TopicAll {
		return window
	}

	var entityKind, entityID string
	if idx := strings.Index(topic, ":"); idx >= 0 {
		entityKind, entityID = topic[:idx], topic[idx+1:]
	}

	matched := window[:0]
	for _, e := range window {
		switch {
		case e.Topic == topic:
			matched = append(matched, e)
		case entityID != "" && payloadEntityID(e.Data) == entityID &&
			strings.HasPrefix(e.Event, entityKind+":"):
			matched = append(matched, e)
		}
	}
	return matched
}

// Len reports the number of retained entries.
func (c *ReplayCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func payloadEntityID(data map[string]interface{}) string {
	if data == nil {
		return ""
	}
	id, _ := data["entityId"].(string)
	return id
}
