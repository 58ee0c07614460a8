// internal/bus/bus.go
package bus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler receives one dispatched event. The payload map must be treated as
// read-only; it is shared between handlers.
type Handler func(eventName string, payload map[string]any)

// Subscription detaches a handler from the bus.
type Subscription interface {
	Unsubscribe()
}

// Bus is an in-memory dispatcher. Handlers are keyed by event name; the
// empty name subscribes to everything. Dispatch runs handlers synchronously
// in the caller's goroutine — the connection listener already processes
// each frame on its own goroutine, so the bus stays simple.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string]map[string]Handler
	logger   *zap.Logger
}

// AllEvents subscribes a handler to every dispatched event.
const AllEvents = ""

func New(logger *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[string]map[string]Handler),
		logger:   logger.Named("event_bus"),
	}
}

// Subscribe registers a handler for a specific event name.
func (b *Bus) Subscribe(eventName string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	if b.handlers[eventName] == nil {
		b.handlers[eventName] = make(map[string]Handler)
	}
	b.handlers[eventName][id] = handler

	b.logger.Debug("Handler subscribed",
		zap.String("event_name", eventName),
		zap.String("subscription_id", id))

	return &subscription{id: id, eventName: eventName, bus: b}
}

// Dispatch delivers one event to every matching handler. A panicking
// handler is logged and skipped; it never reaches the caller.
func (b *Bus) Dispatch(eventName string, payload map[string]any) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventName])+len(b.handlers[AllEvents]))
	for _, h := range b.handlers[eventName] {
		handlers = append(handlers, h)
	}
	if eventName != AllEvents {
		for _, h := range b.handlers[AllEvents] {
			handlers = append(handlers, h)
		}
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(h, eventName, payload)
	}
}

func (b *Bus) invoke(h Handler, eventName string, payload map[string]any) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Handler panicked",
				zap.String("event_name", eventName),
				zap.Any("panic", r))
		}
	}()
	h(eventName, payload)
}

// HandlerCount returns the number of handlers registered for an event name.
func (b *Bus) HandlerCount(eventName string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventName])
}

func (b *Bus) unsubscribe(eventName, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if handlers, ok := b.handlers[eventName]; ok {
		delete(handlers, id)
		if len(handlers) == 0 {
			delete(b.handlers, eventName)
		}
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_name", eventName),
		zap.String("subscription_id", id))
}

type subscription struct {
	id        string
	eventName string
	bus       *Bus
	once      sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.unsubscribe(s.eventName, s.id) })
}
