// Package hub implements the in-process fan-out registry that relays
// normalized reading summaries to live subscriber sessions.
package hub

import (
	"sync"

	"go.uber.org/zap"

	"rectmon/internal/models"
)

const defaultBufferSize = 16

// Subscription is one subscriber's handle onto the hub. Deliveries arrive on
// Readings in publish order until the handle is unsubscribed.
type Subscription struct {
	ch chan models.ReadingSummary
}

// Readings returns the delivery channel. It is closed on unsubscribe.
func (s *Subscription) Readings() <-chan models.ReadingSummary {
	return s.ch
}

// Hub fans readings out to all currently subscribed handles. Publishing is
// non-blocking: a subscriber whose buffer is full misses the reading rather
// than delaying the publisher or other subscribers.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	logger      *zap.Logger
}

// New returns an empty hub.
func New(logger *zap.Logger) *Hub {
	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  defaultBufferSize,
		logger:      logger,
	}
}

// Subscribe registers a new handle.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan models.ReadingSummary, h.bufferSize)}

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	total := len(h.subscribers)
	h.mu.Unlock()

	h.logger.Debug("subscriber registered", zap.Int("total_subscribers", total))
	return sub
}

// Unsubscribe removes the handle and closes its channel. Unsubscribing an
// already-removed handle is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, ok := h.subscribers[sub]
	if ok {
		delete(h.subscribers, sub)
		close(sub.ch)
	}
	total := len(h.subscribers)
	h.mu.Unlock()

	if ok {
		h.logger.Debug("subscriber removed", zap.Int("total_subscribers", total))
	}
}

// Publish delivers the summary to every current subscriber. The lock is held
// across the delivery loop so concurrent publishes reach each subscriber in a
// consistent order.
func (h *Hub) Publish(summary models.ReadingSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.ch <- summary:
		default:
			h.logger.Warn("dropping reading, subscriber buffer full",
				zap.String("site_name", summary.SiteName),
			)
		}
	}
}

// SubscriberCount returns the number of live handles.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
