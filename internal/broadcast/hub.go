// Package broadcast provides the publish/subscribe channel that fans each
// agent's process output out to connected clients.
package broadcast

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// OutputTopic returns the topic carrying one agent's process output.
func OutputTopic(agentID string) string {
	return fmt.Sprintf("agent:%s:output", agentID)
}

// UpdateTopic returns the topic carrying one chat session's streamed
// assistant text. Each payload is the full accumulated text so far.
func UpdateTopic(sessionID string) string {
	return fmt.Sprintf("session:%s:update", sessionID)
}

// Handler receives every payload published to a subscribed topic.
type Handler func(topic string, payload []byte)

type subscriber struct {
	id      string
	topic   string // empty means all topics
	handler Handler
}

// Hub is a many-to-many topic-keyed broadcaster. Delivery is at-most-once
// to currently registered subscribers; there is no queuing or replay, so
// a subscriber that joins late misses prior output (live-tail semantics).
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]*subscriber
	all    map[string]*subscriber
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[string]*subscriber),
		all:    make(map[string]*subscriber),
	}
}

// Subscribe registers a handler for one topic and returns a subscription id.
func (h *Hub) Subscribe(topic string, fn Handler) string {
	sub := &subscriber{id: uuid.NewString(), topic: topic, handler: fn}
	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[string]*subscriber)
	}
	h.topics[topic][sub.id] = sub
	h.mu.Unlock()
	return sub.id
}

// SubscribeAll registers a handler for every topic. Used by the WebSocket
// layer, which mirrors every agent's output to each connected client.
func (h *Hub) SubscribeAll(fn Handler) string {
	sub := &subscriber{id: uuid.NewString(), handler: fn}
	h.mu.Lock()
	h.all[sub.id] = sub
	h.mu.Unlock()
	return sub.id
}

// Unsubscribe removes a subscription. Unknown ids are ignored.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.all[id]; ok {
		delete(h.all, sub.id)
		return
	}
	for topic, subs := range h.topics {
		if _, ok := subs[id]; ok {
			delete(subs, id)
			if len(subs) == 0 {
				delete(h.topics, topic)
			}
			return
		}
	}
}

// Publish delivers payload to every current subscriber of topic, plus all
// wildcard subscribers. Handlers run on the publisher's goroutine; slow
// consumers must buffer on their side (the WebSocket layer does).
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	subs := make([]*subscriber, 0, len(h.topics[topic])+len(h.all))
	for _, sub := range h.topics[topic] {
		subs = append(subs, sub)
	}
	for _, sub := range h.all {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(topic, payload)
	}
}
