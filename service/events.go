package service

import (
	"context"
	"log/slog"
	"sync"

	"go.uber.org/multierr"
)

// EventType names a write that happened.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event describes a successful write.
type Event struct {
	Type   EventType
	Index  string
	ID     string
	Record any
}

// Listener reacts to events.
type Listener interface {
	Handle(ctx context.Context, event Event) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event Event) error

// Handle implements Listener.
func (f ListenerFunc) Handle(ctx context.Context, event Event) error { return f(ctx, event) }

type subscription struct {
	listener Listener
	types    map[EventType]struct{}
}

// Dispatcher delivers events synchronously to its listeners, in
// subscription order.
type Dispatcher struct {
	mu   sync.RWMutex
	subs []subscription
}

// NewDispatcher returns a dispatcher with no listeners.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Subscribe registers l for the given event types, or for every type when
// none are given.
func (d *Dispatcher) Subscribe(l Listener, types ...EventType) {
	s := subscription{listener: l}
	if len(types) > 0 {
		s.types = make(map[EventType]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}
	d.mu.Lock()
	d.subs = append(d.subs, s)
	d.mu.Unlock()
}

// Len returns the number of subscriptions.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Dispatch runs every interested listener, even after a failure, and
// returns the combined errors.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) error {
	d.mu.RLock()
	subs := append([]subscription(nil), d.subs...)
	d.mu.RUnlock()

	var err error
	for _, s := range subs {
		if s.types != nil {
			if _, ok := s.types[event.Type]; !ok {
				continue
			}
		}
		err = multierr.Append(err, s.listener.Handle(ctx, event))
	}
	return err
}

func logDispatch(ctx context.Context, logger *slog.Logger, event Event, err error) {
	if err == nil {
		return
	}
	for _, e := range multierr.Errors(err) {
		logger.WarnContext(ctx, "event listener failed",
			"event", string(event.Type), "index", event.Index, "id", event.ID, "error", e)
	}
}
