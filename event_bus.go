package stageflow

import (
	"log/slog"
	"sync"

	"github.com/simon020286/go-stageflow/models"
)

// eventBus manages event distribution to registered listeners (private)
type eventBus struct {
	listeners []listenerEntry
	nextID    int
	mutex     sync.RWMutex
	logger    *slog.Logger
}

type listenerEntry struct {
	id       int
	listener models.EventListener
}

// newEventBus creates a new eventBus instance (private)
func newEventBus(logger *slog.Logger) *eventBus {
	return &eventBus{
		listeners: make([]listenerEntry, 0),
		logger:    logger,
	}
}

// addListener registers a new listener and returns a function removing it
func (eb *eventBus) addListener(listener models.EventListener) func() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	eb.nextID++
	id := eb.nextID
	eb.listeners = append(eb.listeners, listenerEntry{id: id, listener: listener})

	return func() {
		eb.mutex.Lock()
		defer eb.mutex.Unlock()
		for i, entry := range eb.listeners {
			if entry.id == id {
				eb.listeners = append(eb.listeners[:i], eb.listeners[i+1:]...)
				return
			}
		}
	}
}

// removeAllListeners removes all listeners
func (eb *eventBus) removeAllListeners() {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.listeners = make([]listenerEntry, 0)
}

// Emit delivers events, in order, to every registered listener.
// Listeners run on the caller's goroutine and must not block.
func (eb *eventBus) Emit(events ...models.Event) {
	if len(events) == 0 {
		return
	}

	eb.mutex.RLock()
	listeners := make([]listenerEntry, len(eb.listeners))
	copy(listeners, eb.listeners)
	eb.mutex.RUnlock()

	for _, event := range events {
		for _, entry := range listeners {
			eb.deliver(entry.listener, event)
		}
	}
}

// deliver isolates the engine from a panicking listener
func (eb *eventBus) deliver(l models.EventListener, event models.Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.logger.Error("event listener panicked", "event", event.Type, "panic", r)
		}
	}()
	l.OnEvent(event)
}
