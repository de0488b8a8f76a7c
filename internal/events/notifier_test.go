package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	changes []Change
	err     error
}

func (p *recordingPublisher) PublishChange(_ context.Context, c Change) error {
	p.changes = append(p.changes, c)
	return p.err
}

func TestNotifyReachesListenersAndPublisher(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNotifier(pub)

	var seen []Change
	cancel := n.Subscribe(func(c Change) { seen = append(seen, c) })
	defer cancel()

	n.Notify(context.Background(), Change{Entity: EntityTransaction, Op: OpCreate, UserID: 7})

	require.Len(t, seen, 1)
	assert.Equal(t, EntityTransaction, seen[0].Entity)
	assert.Equal(t, int64(7), seen[0].UserID)
	assert.False(t, seen[0].At.IsZero(), "At is stamped when missing")
	require.Len(t, pub.changes, 1)
}

func TestCancelStopsDelivery(t *testing.T) {
	n := NewNotifier(nil)
	var count int
	cancel := n.Subscribe(func(Change) { count++ })
	n.Notify(context.Background(), Change{Entity: EntityBudget, Op: OpUpdate})
	cancel()
	n.Notify(context.Background(), Change{Entity: EntityBudget, Op: OpUpdate})
	assert.Equal(t, 1, count)
}

func TestPublisherErrorIsSwallowed(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	n := NewNotifier(pub)
	var delivered bool
	n.Subscribe(func(Change) { delivered = true })

	// Must not panic or block the caller.
	n.Notify(context.Background(), Change{Entity: EntityUser, Op: OpDelete, UserID: 1})
	assert.True(t, delivered)
}
