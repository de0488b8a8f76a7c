// Package events fans out data-change notifications to in-process
// listeners and, optionally, an external publisher.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Entity names the collection a change touched.
type Entity string

const (
	EntityUser        Entity = "user"
	EntityTransaction Entity = "transaction"
	EntityBudget      Entity = "budget"
)

// Op names the mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one committed mutation.
type Change struct {
	Entity Entity    `json:"entity"`
	Op     Op        `json:"op"`
	UserID int64     `json:"user_id"`
	At     time.Time `json:"at"`
}

// Publisher forwards changes to an external system, such as a message
// broker. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishChange(ctx context.Context, c Change) error
}

// Notifier delivers changes to registered listeners. Listener and
// publisher failures never fail the mutation that produced the change.
type Notifier struct {
	publisher Publisher

	mu        sync.Mutex
	nextID    int
	listeners map[int]func(Change)
}

func NewNotifier(publisher Publisher) *Notifier {
	return &Notifier{
		publisher: publisher,
		listeners: make(map[int]func(Change)),
	}
}

// Subscribe registers fn for every future change. The returned cancel
// function removes the listener.
func (n *Notifier) Subscribe(fn func(Change)) (cancel func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Notify delivers c to all listeners synchronously, then to the
// publisher if one is configured.
func (n *Notifier) Notify(ctx context.Context, c Change) {
	if c.At.IsZero() {
		c.At = time.Now().UTC()
	}

	n.mu.Lock()
	fns := make([]func(Change), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}

	if n.publisher != nil {
		if err := n.publisher.PublishChange(ctx, c); err != nil {
			slog.WarnContext(ctx, "Failed to publish change",
				"entity", c.Entity, "op", c.Op, "user_id", c.UserID, "error", err)
		}
	}
}
