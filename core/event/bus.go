// Package event is a small synchronous, in-process event bus.
// Handlers are registered explicitly per event name; there is no global bus.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/trezcool/coursecertificate/core"
)

// Event is anything that can be published on a Bus.
type Event interface {
	EventName() string
}

// Handler handles one published Event.
type Handler func(ctx context.Context, ev Event) error

type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   core.Logger
}

func NewBus(logger core.Logger) *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Subscribe registers h for every event named name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler subscribed to ev, in registration order.
// A failing handler is logged and does not prevent the next ones from running.
// It returns the number of handlers that failed.
func (b *Bus) Publish(ctx context.Context, ev Event) int {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[ev.EventName()]))
	copy(handlers, b.handlers[ev.EventName()])
	b.mu.RUnlock()

	var failed int
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			failed++
			b.logger.Error(fmt.Sprintf("handling %s: %v", ev.EventName(), err), err)
		}
	}
	return failed
}

// HasSubscribers reports whether any handler listens to name.
func (b *Bus) HasSubscribers(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[name]) > 0
}
