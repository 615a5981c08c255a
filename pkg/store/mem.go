package store

import "sync"

// MemStore is an in-process, push-updated item store.
// Writers call SetItems/SetLoading/SetError; every mutation publishes a new
// snapshot revision and notifies subscribers.
type MemStore struct {
	mu   sync.RWMutex
	snap Snapshot

	notifier
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

// Snapshot returns the current state.
func (s *MemStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers a change notification.
func (s *MemStore) Subscribe(fn func()) (cancel func()) {
	return s.subscribe(fn)
}

// SetItems replaces the item collection and clears loading/error state.
// The items slice is copied; callers may reuse theirs.
func (s *MemStore) SetItems(items []Item) {
	s.mu.Lock()
	s.snap = Snapshot{
		Items:    append([]Item(nil), items...),
		Revision: s.snap.Revision + 1,
	}
	s.mu.Unlock()
	s.notifyAll()
}

// SetLoading marks the store as loading. Items from the previous snapshot
// are retained so consumers can keep showing last-good data.
func (s *MemStore) SetLoading(loading bool) {
	s.mu.Lock()
	s.snap = Snapshot{
		Items:    s.snap.Items,
		Loading:  loading,
		Revision: s.snap.Revision + 1,
	}
	s.mu.Unlock()
	s.notifyAll()
}

// SetError publishes an error state. An empty message clears the error.
func (s *MemStore) SetError(msg string) {
	s.mu.Lock()
	s.snap = Snapshot{
		Items:    s.snap.Items,
		Err:      msg,
		Revision: s.snap.Revision + 1,
	}
	s.mu.Unlock()
	s.notifyAll()
}

// Ensure MemStore implements Store.
var _ Store = (*MemStore)(nil)
