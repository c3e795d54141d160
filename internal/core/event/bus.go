package event

import (
	"reflect"

	"go.uber.org/zap"
)

// Bus is a typed, synchronous publish/subscribe channel. Handlers are keyed by
// event type. The handler lists are never mutated while they are being
// iterated: Subscribe and Subscription.Close calls made during a dispatch are
// staged and applied before the next dispatch begins. Publishes issued from
// inside a handler are queued and drained after the current dispatch returns,
// so dispatch never reenters itself.
//
// The bus is not safe for concurrent use; it belongs to the game loop.
type Bus struct {
	handlers map[reflect.Type][]*Subscription

	pendingAdd    []*Subscription
	pendingRemove []*Subscription

	dispatching bool
	deferred    []queuedEvent

	// When log is non-nil, handler panics are logged and swallowed.
	// Otherwise Publish returns the first panic as an error.
	log *zap.Logger
}

type queuedEvent struct {
	typ reflect.Type
	ev  any
}

// Subscription is one registered handler. Closing it unsubscribes; the
// removal takes effect after the current dispatch (if any), but the handler
// stops being invoked immediately.
type Subscription struct {
	bus  *Bus
	typ  reflect.Type
	fn   func(any)
	live bool
}

// Close unsubscribes the handler. Safe to call during dispatch and safe to
// call more than once.
func (s *Subscription) Close() {
	if !s.live {
		return
	}
	s.live = false
	if s.bus.dispatching {
		s.bus.pendingRemove = append(s.bus.pendingRemove, s)
		return
	}
	s.bus.remove(s)
}

// NewBus creates a bus. A nil logger means handler panics are returned from
// Publish instead of being logged and swallowed.
func NewBus(log *zap.Logger) *Bus {
	return &Bus{
		handlers: make(map[reflect.Type][]*Subscription),
		log:      log,
	}
}

// Subscribe registers a handler for events of type T. Registering the same
// function twice results in it being invoked twice. During a dispatch the
// registration is staged and the handler does not fire until the next publish.
func Subscribe[T any](b *Bus, fn func(T)) *Subscription {
	t := reflect.TypeOf((*T)(nil)).Elem()
	sub := &Subscription{
		bus:  b,
		typ:  t,
		fn:   func(ev any) { fn(ev.(T)) },
		live: true,
	}
	if b.dispatching {
		b.pendingAdd = append(b.pendingAdd, sub)
	} else {
		b.handlers[t] = append(b.handlers[t], sub)
	}
	return sub
}

// Publish delivers the event to every registered handler exactly once,
// synchronously. Publishing with no subscribers is a no-op. If called from
// inside a handler the event is queued and delivered after the current
// dispatch finishes. A panicking handler does not prevent the remaining
// handlers from running; the first panic is reported per the bus's error
// policy after all handlers ran.
func Publish[T any](b *Bus, ev T) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if b.dispatching {
		b.deferred = append(b.deferred, queuedEvent{typ: t, ev: ev})
		return nil
	}

	firstErr := b.dispatch(t, ev)

	// Drain publishes that handlers queued, in order. Each drained dispatch
	// may queue more; the loop runs until the queue is empty.
	for len(b.deferred) > 0 {
		next := b.deferred[0]
		b.deferred = b.deferred[1:]
		if err := b.dispatch(next.typ, next.ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (b *Bus) dispatch(t reflect.Type, ev any) error {
	b.applyPending()
	b.dispatching = true

	var firstErr error
	for _, sub := range b.handlers[t] {
		if !sub.live {
			continue // closed itself earlier in this same dispatch
		}
		if err := b.invoke(sub, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	b.dispatching = false
	b.applyPending()

	if firstErr != nil && b.log != nil {
		b.log.Error("event handler panicked", zap.Error(firstErr))
		return nil
	}
	return firstErr
}

func (b *Bus) invoke(sub *Subscription, ev any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerPanicError{Value: r}
		}
	}()
	sub.fn(ev)
	return nil
}

func (b *Bus) applyPending() {
	for _, sub := range b.pendingAdd {
		if sub.live {
			b.handlers[sub.typ] = append(b.handlers[sub.typ], sub)
		}
	}
	b.pendingAdd = b.pendingAdd[:0]

	for _, sub := range b.pendingRemove {
		b.remove(sub)
	}
	b.pendingRemove = b.pendingRemove[:0]
}

func (b *Bus) remove(sub *Subscription) {
	subs := b.handlers[sub.typ]
	for i, s := range subs {
		if s == sub {
			b.handlers[sub.typ] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// HandlerPanicError wraps a recovered handler panic.
type HandlerPanicError struct {
	Value any
}

func (e *HandlerPanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "handler panic: " + err.Error()
	}
	return "handler panic"
}
