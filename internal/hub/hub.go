package hub

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Update kinds.
const (
	KindTaskChanged       = "task.changed"
	KindScheduleGenerated = "schedule.generated"
	KindTaskOverdue       = "task.overdue"
)

const defaultBuffer = 16

// Update is one dashboard event addressed to a user.
type Update struct {
	UserID int             `json:"user_id"`
	Kind   string          `json:"kind"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     time.Time       `json:"at"`
}

// Hub fans updates out to subscribers of the addressed user. Slow
// subscribers lose updates rather than stall publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]map[*subscriber]struct{}
	closed bool
	buffer int
	logger *zap.Logger
}

type subscriber struct {
	ch   chan Update
	once sync.Once
}

func (s *subscriber) close() {
	s.once.Do(func() { close(s.ch) })
}

func New(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[int]map[*subscriber]struct{}),
		buffer: defaultBuffer,
		logger: logger,
	}
}

// Subscribe registers a listener for userID. cancel must be called to
// release it; the channel is closed afterwards. After Close the returned
// channel is already closed.
func (h *Hub) Subscribe(userID int) (<-chan Update, func()) {
	s := &subscriber{ch: make(chan Update, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		s.close()
		return s.ch, func() {}
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscriber]struct{})
	}
	h.subs[userID][s] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		delete(h.subs[userID], s)
		if len(h.subs[userID]) == 0 {
			delete(h.subs, userID)
		}
		h.mu.Unlock()
		s.close()
	}
	return s.ch, cancel
}

// Close drops every subscriber and closes their channels so open streams
// end. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*subscriber
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.subs = make(map[int]map[*subscriber]struct{})
	h.closed = true
	h.mu.Unlock()

	for _, s := range all {
		s.close()
	}
	h.logger.Info("Dashboard hub closed", zap.Int("subscribers", len(all)))
}

// Publish delivers u to every subscriber of u.UserID without blocking.
// It returns the number of subscribers that received it.
func (h *Hub) Publish(u Update) int {
	if u.At.IsZero() {
		u.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for s := range h.subs[u.UserID] {
		select {
		case s.ch <- u:
			delivered++
		default:
			h.logger.Warn("Dropping dashboard update for slow subscriber",
				zap.Int("user_id", u.UserID),
				zap.String("kind", u.Kind),
			)
		}
	}
	return delivered
}

// Subscribers reports how many listeners userID has.
func (h *Hub) Subscribers(userID int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}
