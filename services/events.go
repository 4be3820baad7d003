package services

import (
	"sync"
	"time"

	"pare/logger"
)

type EventType string

const (
	EventCheckIn             EventType = "checkin"
	EventRelapse             EventType = "relapse"
	EventAchievementUnlocked EventType = "achievement_unlocked"
	EventModuleCreated       EventType = "module_created"
)

// Event is pushed to a user's live connections.
type Event struct {
	Type     EventType   `json:"type"`
	ModuleID string      `json:"module_id,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
	At       time.Time   `json:"at"`
}

// Subscription receives the events of one user until Close is called.
type Subscription struct {
	C <-chan Event

	ch     chan Event
	userID uint
	hub    *Events
	once   sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.ch)
	})
}

// Events fans out per-user events to every live subscriber of that user.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Events struct {
	mu     sync.RWMutex
	subs   map[uint]map[*Subscription]struct{}
	buffer int
}

func NewEvents(buffer int) *Events {
	if buffer <= 0 {
		buffer = 32
	}
	return &Events{
		subs:   make(map[uint]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

func (h *Events) Subscribe(userID uint) *Subscription {
	ch := make(chan Event, h.buffer)
	sub := &Subscription{C: ch, ch: ch, userID: userID, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*Subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	return sub
}

func (h *Events) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[s.userID], s)
	if len(h.subs[s.userID]) == 0 {
		delete(h.subs, s.userID)
	}
}

// Publish queues e for every subscriber of userID.
func (h *Events) Publish(userID uint, e Event) {
	if h == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[userID] {
		select {
		case sub.ch <- e:
		default:
			logger.Warn("event buffer full, dropping event", "user", userID, "type", e.Type)
		}
	}
}

// Subscribers reports how many live subscriptions userID has.
func (h *Events) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
