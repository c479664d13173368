package events

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Subscription identifies a registered handler for Unsubscribe.
type Subscription uint64

type subscriber struct {
	id      Subscription
	handler Handler
}

// pending is a notification queued by a nested emit plus its follow-up.
type pending struct {
	n    Notification
	then func(Notification)
}

// Bus is a synchronous publish/subscribe hub. Handlers for a kind run in
// subscription order on the emitting goroutine. The bus is meant for the
// single-threaded game loop and is not safe for concurrent use.
type Bus struct {
	handlers map[Kind][]subscriber
	nextID   Subscription
	history  *History

	dispatching bool
	deferred    Queue[pending]

	log logrus.FieldLogger
}

type BusOption func(*Bus)

func WithHistoryCapacity(n int) BusOption {
	return func(b *Bus) { b.history = NewHistory(n) }
}

func WithLogger(log logrus.FieldLogger) BusOption {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[Kind][]subscriber),
		history:  NewHistory(DefaultHistoryCapacity),
		log:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.log = b.log.WithField("component", "event_bus")
	return b
}

// Subscribe registers h for kind and returns a handle for Unsubscribe.
func (b *Bus) Subscribe(kind Kind, h Handler) Subscription {
	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], subscriber{id: b.nextID, handler: h})
	return b.nextID
}

// Unsubscribe removes a handler; it reports false if sub was not registered
// for kind.
func (b *Bus) Unsubscribe(kind Kind, sub Subscription) bool {
	subs := b.handlers[kind]
	for i, s := range subs {
		if s.id == sub {
			next := make([]subscriber, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			b.handlers[kind] = append(next, subs[i+1:]...)
			return true
		}
	}
	return false
}

// HandlerCount returns the number of handlers subscribed to kind.
func (b *Bus) HandlerCount(kind Kind) int {
	return len(b.handlers[kind])
}

// ClearHandlers drops every subscription.
func (b *Bus) ClearHandlers() {
	b.handlers = make(map[Kind][]subscriber)
}

// EmitSimple wraps p in a new notification and emits it.
func (b *Bus) EmitSimple(p Payload, cancellable bool) Notification {
	return b.Emit(New(p, cancellable, "bus"))
}

// Emit dispatches n to every handler of its kind and returns it with the
// cancellation outcome applied.
//
// A notification emitted from inside a handler is queued and dispatched after
// the current one finishes; the returned value then carries no verdicts.
func (b *Bus) Emit(n Notification) Notification {
	n, _ = b.EmitThen(n, nil)
	return n
}

// EmitThen emits n and calls then with the dispatched notification, verdicts
// applied. Inside a handler n is queued: EmitThen returns false and then runs
// once the queued notification has been dispatched.
func (b *Bus) EmitThen(n Notification, then func(Notification)) (Notification, bool) {
	if n.Payload != nil {
		n.Kind = n.Payload.Kind()
	}
	if b.dispatching {
		b.deferred.Push(pending{n: n, then: then})
		return n, false
	}
	n = b.run(n)
	if then != nil {
		b.follow(then, n)
	}
	return n, true
}

func (b *Bus) run(n Notification) Notification {
	b.dispatching = true
	defer func() { b.dispatching = false }()

	n = b.dispatch(n)
	for {
		next, ok := b.deferred.Pop()
		if !ok {
			break
		}
		done := b.dispatch(next.n)
		if next.then != nil {
			b.follow(next.then, done)
		}
	}
	return n
}

func (b *Bus) follow(then func(Notification), n Notification) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithFields(logrus.Fields{
				"kind":         n.Kind.String(),
				"notification": n.ID,
			}).Errorf("follow-up panic: %v", r)
		}
	}()
	then(n)
}

func (b *Bus) dispatch(n Notification) Notification {
	subs := b.handlers[n.Kind]
	for _, s := range subs {
		verdict, err := b.invoke(s, n)
		if err != nil {
			b.log.WithFields(logrus.Fields{
				"kind":         n.Kind.String(),
				"subscription": s.id,
				"notification": n.ID,
			}).WithError(err).Error("handler failed")
			continue
		}
		if verdict != Cancel || n.cancelled {
			continue
		}
		if !n.Cancellable {
			b.log.WithFields(logrus.Fields{
				"kind":         n.Kind.String(),
				"subscription": s.id,
			}).Warn("cancel ignored on non-cancellable notification")
			continue
		}
		n.cancelled = true
	}
	b.history.Add(n)
	return n
}

func (b *Bus) invoke(s subscriber, n Notification) (verdict Verdict, err error) {
	defer func() {
		if r := recover(); r != nil {
			verdict, err = Continue, fmt.Errorf("events: handler panic: %v", r)
		}
	}()
	return s.handler(n)
}

// History returns dispatched notifications oldest first, optionally filtered
// by kind.
func (b *Bus) History(kinds ...Kind) []Notification {
	return b.history.Snapshot(kinds...)
}

// ClearHistory empties the history ring.
func (b *Bus) ClearHistory() {
	b.history.Clear()
}
