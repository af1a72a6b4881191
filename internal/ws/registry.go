package ws

import "sync"

// Registry tracks which clients are subscribed to which topics. It is safe
// for concurrent use: the ingestion path reads membership snapshots while
// connection handlers join and leave.
//
// Invariant: a topic key exists iff it has at least one subscriber.
type Registry struct {
	mu     sync.RWMutex
	topics map[string]map[string]struct{} // topic -> set of client IDs
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{topics: make(map[string]map[string]struct{})}
}

// Join adds clientID to the topic's subscriber set. Idempotent.
func (r *Registry) Join(clientID, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.topics[topic] == nil {
		r.topics[topic] = make(map[string]struct{})
	}
	r.topics[topic][clientID] = struct{}{}
}

// Leave removes clientID from the topic's subscriber set, dropping the topic
// key entirely once the set is empty. Idempotent.
func (r *Registry) Leave(clientID, topic string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if subs, ok := r.topics[topic]; ok {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
}

// RemoveClient removes the client from every topic it belongs to. Called on
// disconnect; idempotent.
func (r *Registry) RemoveClient(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for topic, subs := range r.topics {
		delete(subs, clientID)
		if len(subs) == 0 {
			delete(r.topics, topic)
		}
	}
}

// MembersOf returns a snapshot of the topic's subscriber IDs, so a join or
// leave during an in-flight broadcast cannot corrupt the iteration.
func (r *Registry) MembersOf(topic string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	subs := r.topics[topic]
	members := make([]string, 0, len(subs))
	for id := range subs {
		members = append(members, id)
	}
	return members
}

// Stats returns the subscriber count per topic.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := make(map[string]int, len(r.topics))
	for topic, subs := range r.topics {
		stats[topic] = len(subs)
	}
	return stats
}
