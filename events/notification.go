package events

import (
	"time"

	"github.com/google/uuid"
)

// Notification is one emitted occurrence. It is passed to handlers by value;
// handlers influence cancellation only through the Verdict they return.
type Notification struct {
	ID          uuid.UUID
	Kind        Kind
	Payload     Payload
	Cancellable bool
	Source      string
	Time        time.Time

	cancelled bool
}

// New wraps p in a notification with a fresh id.
func New(p Payload, cancellable bool, source string) Notification {
	return Notification{
		ID:          uuid.New(),
		Kind:        p.Kind(),
		Payload:     p,
		Cancellable: cancellable,
		Source:      source,
		Time:        time.Now(),
	}
}

// Cancelled reports whether a handler vetoed the notification.
func (n Notification) Cancelled() bool {
	return n.cancelled
}

// Verdict is a handler's answer to a notification.
type Verdict uint8

const (
	Continue Verdict = iota
	Cancel
)

func (v Verdict) String() string {
	if v == Cancel {
		return "cancel"
	}
	return "continue"
}

// Handler reacts to a notification. A non-nil error discards the verdict.
type Handler func(n Notification) (Verdict, error)

// Observe adapts a function that never vetoes or fails.
func Observe(fn func(n Notification)) Handler {
	return func(n Notification) (Verdict, error) {
		fn(n)
		return Continue, nil
	}
}
