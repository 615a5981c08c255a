// Package store provides the item data store the visualization observes.
//
// The store owns a mutable collection of content items and publishes
// immutable snapshots of it. Consumers subscribe for change notifications;
// a notification carries no payload, subscribers re-read Snapshot() and
// compare against their own last-seen state. This keeps the contract
// push-updated but pull-consistent: a burst of notifications can always be
// collapsed into one read of the latest snapshot.
//
// Two implementations are provided: MemStore for in-process use and tests,
// and MongoStore which polls a MongoDB collection and publishes through the
// same contract.
package store

import "sync"

// Item is one content record. The visualization reads the grouping and count
// attributes and treats everything else as opaque.
type Item struct {
	ID         string `json:"id,omitempty" bson:"_id,omitempty"`
	Title      string `json:"title,omitempty" bson:"title,omitempty"`
	Country    string `json:"country" bson:"country"`
	Collection string `json:"collection" bson:"collection"`
	WordCount  int    `json:"word_count" bson:"word_count"`
}

// Snapshot is an immutable view of the store's state.
// Items must not be mutated by consumers.
type Snapshot struct {
	Items   []Item
	Loading bool
	Err     string

	// Revision increments on every publish. Consumers use it as the
	// change-detection gate: the item count alone cannot distinguish a
	// same-size replacement of the collection.
	Revision uint64
}

// Store is the data store contract the visualization consumes.
type Store interface {
	// Snapshot returns the current state.
	Snapshot() Snapshot

	// Subscribe registers a change notification and returns a cancel function.
	Subscribe(fn func()) (cancel func())
}

// notifier implements subscriber bookkeeping shared by the store implementations.
type notifier struct {
	mu     sync.Mutex
	subs   map[int]func()
	nextID int
}

func (n *notifier) subscribe(fn func()) (cancel func()) {
	n.mu.Lock()
	if n.subs == nil {
		n.subs = make(map[int]func())
	}
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}

// notifyAll invokes all subscribers outside the notifier lock.
func (n *notifier) notifyAll() {
	n.mu.Lock()
	subs := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn()
	}
}
