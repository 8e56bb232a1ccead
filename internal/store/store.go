// Package store holds the client-side copy of server-owned entities.
//
// A Store is an ordered, keyed collection. Every operation is atomic and
// synchronous; writers never observe a half-applied write from another
// writer. Missing ids are silent no-ops for Remove and UpdateWhere because a
// racing reconciliation may already have produced the same result.
package store

import "sync"

// Keyed is implemented by every entity kept in a Store.
type Keyed interface {
	Key() string
}

type Store[E Keyed] struct {
	mu    sync.RWMutex
	items []E
	index map[string]int

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

func New[E Keyed]() *Store[E] {
	return &Store[E]{
		index: make(map[string]int),
		subs:  make(map[chan struct{}]struct{}),
	}
}

// Get returns a snapshot of the entities in order.
func (s *Store[E]) Get() []E {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]E, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store[E]) Find(id string) (E, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.index[id]
	if !ok {
		var zero E
		return zero, false
	}
	return s.items[i], true
}

func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// ReplaceAll swaps the whole collection. Entities absent from items are
// removed. A duplicated id keeps its first position and its last value.
func (s *Store[E]) ReplaceAll(items []E) {
	s.mu.Lock()
	next := make([]E, 0, len(items))
	index := make(map[string]int, len(items))
	for _, e := range items {
		if i, ok := index[e.Key()]; ok {
			next[i] = e
			continue
		}
		index[e.Key()] = len(next)
		next = append(next, e)
	}
	s.items = next
	s.index = index
	s.mu.Unlock()

	s.notify()
}

// Upsert appends e when its id is absent, otherwise overwrites the existing
// entity in place.
func (s *Store[E]) Upsert(e E) {
	s.mu.Lock()
	if i, ok := s.index[e.Key()]; ok {
		s.items[i] = e
	} else {
		s.index[e.Key()] = len(s.items)
		s.items = append(s.items, e)
	}
	s.mu.Unlock()

	s.notify()
}

// Prepend inserts e at the front when its id is absent, otherwise overwrites
// the existing entity in place. It reports whether e was inserted.
func (s *Store[E]) Prepend(e E) bool {
	s.mu.Lock()
	if i, ok := s.index[e.Key()]; ok {
		s.items[i] = e
		s.mu.Unlock()
		s.notify()
		return false
	}
	s.items = append([]E{e}, s.items...)
	s.reindex()
	s.mu.Unlock()

	s.notify()
	return true
}

func (s *Store[E]) Remove(id string) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	s.reindex()
	s.mu.Unlock()

	s.notify()
	return true
}

// UpdateWhere applies patch to the entity with the given id. The patch must
// not change the entity's key.
func (s *Store[E]) UpdateWhere(id string, patch func(*E)) bool {
	s.mu.Lock()
	i, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return false
	}
	patch(&s.items[i])
	s.mu.Unlock()

	s.notify()
	return true
}

// UpdateAll applies patch to every entity and returns how many were visited.
func (s *Store[E]) UpdateAll(patch func(*E)) int {
	s.mu.Lock()
	for i := range s.items {
		patch(&s.items[i])
	}
	n := len(s.items)
	s.mu.Unlock()

	s.notify()
	return n
}

// Rekey replaces the entity stored under oldID with e, keeping its slot.
// It is used when the server assigns a different id than the optimistic one.
// When oldID is absent, e overwrites an entity already stored under e's own
// id; otherwise nothing is written. It never inserts, and reports whether it
// wrote.
func (s *Store[E]) Rekey(oldID string, e E) bool {
	s.mu.Lock()
	i, ok := s.index[oldID]
	if !ok {
		j, present := s.index[e.Key()]
		if !present {
			s.mu.Unlock()
			return false
		}
		s.items[j] = e
		s.mu.Unlock()
		s.notify()
		return true
	}
	if j, dup := s.index[e.Key()]; dup && j != i {
		s.items = append(s.items[:j], s.items[j+1:]...)
		if j < i {
			i--
		}
	}
	s.items[i] = e
	s.reindex()
	s.mu.Unlock()

	s.notify()
	return true
}

// Subscribe returns a channel that receives a signal after every write.
// Signals coalesce: a slow reader sees at least one pending signal, not one per write.
func (s *Store[E]) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	return ch, func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
}

func (s *Store[E]) notify() {
	s.subMu.Lock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.subMu.Unlock()
}

// reindex must be called with mu held.
func (s *Store[E]) reindex() {
	s.index = make(map[string]int, len(s.items))
	for i, e := range s.items {
		s.index[e.Key()] = i
	}
}
