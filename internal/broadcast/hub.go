package broadcast

import (
	"log/slog"
	"sync"

	"trade_arena/internal/domain"
	"trade_arena/internal/infra"

	"github.com/google/uuid"
)

// Event types delivered to competition observers.
const (
	EventSnapshot = "snapshot"
	EventMovement = "movement"
)

// Event is one message on a competition channel. Snapshot events carry
// the full ranking; movement events carry the non-empty diff.
type Event struct {
	Type          string                  `json:"type"`
	CompetitionID string                  `json:"competition_id"`
	Snapshot      *domain.RankingSnapshot `json:"snapshot,omitempty"`
	Changes       *domain.ChangeSet       `json:"changes,omitempty"`
}

// Observer receives events for a competition it subscribed to. A
// returned error marks the observer broken; the hub drops it.
type Observer interface {
	Notify(ev Event) error
}

// Hub fans events out to the current subscribers of each competition
// channel. Delivery is best effort with no queue and no replay: an
// observer that subscribes after an event simply never sees it, and a
// failing observer is dropped rather than retried. Nothing here can
// fail the trade that produced the event.
type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[string]Observer
	metrics  *infra.Metrics
}

// NewHub creates an empty hub.
func NewHub(metrics *infra.Metrics) *Hub {
	return &Hub{
		channels: make(map[string]map[string]Observer),
		metrics:  metrics,
	}
}

// Subscribe registers an observer on a competition channel and returns
// its subscriber id for Unsubscribe.
func (h *Hub) Subscribe(competitionID string, obs Observer) string {
	id := uuid.NewString()

	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[competitionID]
	if !ok {
		subs = make(map[string]Observer)
		h.channels[competitionID] = subs
	}
	subs[id] = obs
	h.metrics.IncrementObservers()
	return id
}

// Unsubscribe removes an observer from a competition channel.
func (h *Hub) Unsubscribe(competitionID, subscriberID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.channels[competitionID]
	if !ok {
		return
	}
	if _, ok := subs[subscriberID]; !ok {
		return
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		delete(h.channels, competitionID)
	}
	h.metrics.DecrementObservers()
}

// SubscriberCount returns the number of observers on a channel.
func (h *Hub) SubscriberCount(competitionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.channels[competitionID])
}

// Publish delivers the event to every current subscriber of the
// channel. Observers that fail are dropped.
func (h *Hub) Publish(competitionID string, ev Event) {
	h.mu.RLock()
	targets := make(map[string]Observer, len(h.channels[competitionID]))
	for id, obs := range h.channels[competitionID] {
		targets[id] = obs
	}
	h.mu.RUnlock()

	for id, obs := range targets {
		if err := obs.Notify(ev); err != nil {
			slog.Warn("dropping broken observer",
				slog.String("competition_id", competitionID),
				slog.String("subscriber_id", id),
				slog.Any("error", err))
			h.metrics.RecordBroadcastDrop()
			h.Unsubscribe(competitionID, id)
		}
	}
}
