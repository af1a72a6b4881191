package ws

import (
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/logiflow/notification-service/internal/notifications"
)

// TopicAll is the supervisory channel: it receives a copy of every
// entity-scoped event and serves monitoring clients.
const TopicAll = "all"

// EventNotification is the generic event name used when an event's entity
// type has no dedicated channel.
const EventNotification = "notification"

// TopicStats is the subscriber count for one topic.
type TopicStats struct {
	Topic       string `json:"topic"`
	Subscribers int    `json:"subscribers"`
}

// Stats summarizes current realtime connections.
type Stats struct {
	TotalClients int          `json:"totalClients"`
	Topics       []TopicStats `json:"topics"`
}

// Hub manages connected clients and dispatches decoded events to the right
// subscriber sets. It is the single serialization point for the registry
// and the replay cache: both the ingestion path and many concurrent
// connection handlers go through it.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	registry *Registry
	cache    *ReplayCache
}

// NewHub allocates a Hub with default replay-cache bounds.
func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		registry: NewRegistry(),
		cache:    NewReplayCache(DefaultCacheCapacity, DefaultCacheTTL),
	}
}

// Register adds a connected client.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	log.Printf("ws: client %s connected (user=%s authenticated=%v)", c.ID, c.UserID, c.Authenticated)
}

// Unregister removes a client and unconditionally drops all of its
// subscriptions. Safe to call more than once per client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID]
	if ok {
		delete(h.clients, c.ID)
	}
	h.mu.Unlock()

	c.closeSend()

	h.registry.RemoveClient(c.ID)
	if ok {
		log.Printf("ws: client %s disconnected", c.ID)
	}
}

// Subscribe adds the client to a topic's subscriber set.
func (h *Hub) Subscribe(c *Client, topic string) {
	h.registry.Join(c.ID, topic)
	log.Printf("ws: client %s subscribed to %s", c.ID, topic)
}

// Unsubscribe removes the client from a topic's subscriber set.
func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.registry.Leave(c.ID, topic)
	log.Printf("ws: client %s unsubscribed from %s", c.ID, topic)
}

// Dispatch routes a decoded event to its topic set: the entity-scoped topic
// plus the supervisory topic for recognized entity kinds, the supervisory
// topic alone otherwise. After pushing, exactly one cache entry is written
// under the supervisory topic; Query's embedded-id filter surfaces it to
// entity-scoped subscribers on replay.
func (h *Hub) Dispatch(ev notifications.Event) {
	payload := map[string]interface{}{
		"entityId":  ev.EntityID,
		"action":    ev.Action,
		"message":   ev.Message,
		"severity":  ev.Severity,
		"data":      ev.Data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	eventName := EventNotification
	topics := []string{TopicAll}
	switch ev.EntityType {
	case notifications.EntityOrder, notifications.EntityCourier:
		entity := strings.ToLower(ev.EntityType)
		eventName = entity + ":updated"
		topics = []string{entity + ":" + ev.EntityID, TopicAll}
	}

	for _, topic := range topics {
		for _, clientID := range h.registry.MembersOf(topic) {
			h.push(clientID, eventName, payload)
		}
	}

	h.cache.Record(TopicAll, eventName, payload)
	log.Printf("ws: dispatched %s for %s %s to %v", eventName, ev.EntityType, ev.EntityID, topics)
}

// Replay sends the cached entries matching topic to a single client, each
// tagged as a replay with its original cache timestamp, followed by a
// replay:complete marker carrying the count.
func (h *Hub) Replay(c *Client, topic string) {
	entries := h.cache.Query(topic)

	for _, e := range entries {
		data := make(map[string]interface{}, len(e.Data)+2)
		for k, v := range e.Data {
			data[k] = v
		}
		data["replayed"] = true
		data["originalTimestamp"] = e.CachedAt.Format(time.RFC3339)
		c.sendEvent(e.Event, data)
	}

	c.sendEvent("replay:complete", map[string]interface{}{
		"count": len(entries),
		"topic": topic,
	})

	if len(entries) > 0 {
		log.Printf("ws: replayed %d events to client %s (topic %s)", len(entries), c.ID, topic)
	}
}

// SweepCache drops expired replay entries. Called on each new connection.
func (h *Hub) SweepCache() {
	h.cache.SweepExpired()
}

// Stats returns current connection and subscription counts, topics sorted
// for stable output.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()

	byTopic := h.registry.Stats()
	topics := make([]TopicStats, 0, len(byTopic))
	for topic, n := range byTopic {
		topics = append(topics, TopicStats{Topic: topic, Subscribers: n})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Topic < topics[j].Topic })

	return Stats{TotalClients: total, Topics: topics}
}

func (h *Hub) push(clientID, event string, data map[string]interface{}) {
	h.mu.RLock()
	c, ok := h.clients[clientID]
	h.mu.RUnlock()
	if ok {
		c.sendEvent(event, data)
	}
}
