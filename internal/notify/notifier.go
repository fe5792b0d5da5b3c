// Package notify is the change-notification primitive shared by the expense
// store and the settings service. Subscribers register a zero-argument
// callback and receive a token they can cancel to stop the subscription.
package notify

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Callback is invoked after every publish.
type Callback func()

// Notifier fans a change event out to all live subscribers.
type Notifier struct {
	mu   sync.Mutex
	subs map[uuid.UUID]Callback
}

// Subscription identifies one registered callback.
type Subscription struct {
	id       uuid.UUID
	notifier *Notifier
}

func New() *Notifier {
	return &Notifier{subs: make(map[uuid.UUID]Callback)}
}

// Subscribe registers cb and returns its cancellation token.
func (n *Notifier) Subscribe(cb Callback) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := uuid.New()
	n.subs[id] = cb
	return Subscription{id: id, notifier: n}
}

// Publish invokes every live callback synchronously before returning.
// A panicking subscriber is logged and the remaining callbacks still run,
// so one broken view cannot block the others.
func (n *Notifier) Publish() {
	n.mu.Lock()
	callbacks := make([]Callback, 0, len(n.subs))
	for _, cb := range n.subs {
		callbacks = append(callbacks, cb)
	}
	n.mu.Unlock()

	for _, cb := range callbacks {
		invoke(cb)
	}
}

func invoke(cb Callback) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Subscriber panicked during notification", "panic", r)
		}
	}()
	cb()
}

// Len reports the number of live subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}

// Cancel removes the subscription. Cancelling twice is a no-op.
func (s Subscription) Cancel() {
	if s.notifier == nil {
		return
	}
	s.notifier.mu.Lock()
	defer s.notifier.mu.Unlock()
	delete(s.notifier.subs, s.id)
}
