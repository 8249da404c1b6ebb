// Package notify lets views reload when a table they show has changed.
package notify

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Op is the kind of change
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event describes one committed change
type Event struct {
	Table  string
	Op     Op
	UserID string
	ID     string
}

// Handler reacts to a change event
type Handler func(ctx context.Context, ev Event)

type subscription struct {
	id int
	fn Handler
}

// Hub fans events out to the handlers subscribed to their table
type Hub struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string][]subscription
	logger *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[string][]subscription),
		logger: logger,
	}
}

// Subscribe registers fn for changes on table and returns a function that removes it
func (h *Hub) Subscribe(table string, fn Handler) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs[table] = append(h.subs[table], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			subs := h.subs[table]
			for i, s := range subs {
				if s.id == id {
					h.subs[table] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every handler of ev.Table in subscription order and returns once they are done.
// A panicking handler is logged and does not stop the others.
func (h *Hub) Publish(ctx context.Context, ev Event) {
	h.mu.RLock()
	subs := make([]subscription, len(h.subs[ev.Table]))
	copy(subs, h.subs[ev.Table])
	h.mu.RUnlock()

	for _, s := range subs {
		h.call(ctx, s.fn, ev)
	}
}

func (h *Hub) call(ctx context.Context, fn Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in change handler",
				zap.String("table", ev.Table),
				zap.String("op", string(ev.Op)),
				zap.Any("panic", r))
		}
	}()
	fn(ctx, ev)
}

// Subscribers returns how many handlers listen on table
func (h *Hub) Subscribers(table string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[table])
}
