// Package dispatcher delivers events to the listeners registered for them.
package dispatcher

import (
	"context"
	"sync"

	"github.com/victorlap/suspicious-login/internal/events"
)

// Listener handles events. Listeners absorb their own failures; an event
// handed to Handle is considered handled when Handle returns.
type Listener interface {
	Handle(ctx context.Context, ev events.Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, ev events.Event)

func (f ListenerFunc) Handle(ctx context.Context, ev events.Event) { f(ctx, ev) }

// Dispatcher is a registry of listeners keyed by event name.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]Listener
}

// New creates an empty dispatcher.
func New() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[string][]Listener),
	}
}

// AddListener registers l for events named name.
func (d *Dispatcher) AddListener(name string, l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[name] = append(d.listeners[name], l)
}

// Dispatch calls every listener registered for ev synchronously, in
// registration order, and returns how many were called. A nil event reaches
// no listener.
func (d *Dispatcher) Dispatch(ctx context.Context, ev events.Event) int {
	if isNil(ev) {
		return 0
	}
	d.mu.RLock()
	ls := d.listeners[ev.EventName()]
	d.mu.RUnlock()

	for _, l := range ls {
		l.Handle(ctx, ev)
	}
	return len(ls)
}

func isNil(ev events.Event) bool {
	switch e := ev.(type) {
	case nil:
		return true
	case *events.SuspiciousLoginEvent:
		return e == nil
	case *events.LoginEvent:
		return e == nil
	case *events.UnknownEvent:
		return e == nil
	}
	return false
}
