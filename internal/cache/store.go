// Package cache is the process-wide resolution cache. A single Store holds
// every entry; typed Namespaces partition it by key prefix and give each
// partition its own freshness window.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// Store is a thread-safe key/value store with creation timestamps and an
// optional LRU bound.
type Store struct {
	maxEntries int // 0 means unbounded
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used

	flight singleflight.Group
}

type entry struct {
	key     string
	value   any
	created time.Time
	prev    *entry
	next    *entry
}

// NewStore creates a store holding at most maxEntries entries (0 for no
// limit). A nil clock uses real time.
func NewStore(maxEntries int, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// Len returns the number of entries, stale ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Contains reports whether key is present, regardless of age.
func (s *Store) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// get returns the value for key if it is younger than ttl. Stale entries are
// dropped. ttl <= 0 never expires.
func (s *Store) get(key string, ttl time.Duration) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	if ttl > 0 && s.clock.Since(e.created) >= ttl {
		s.remove(e)
		delete(s.entries, key)
		return nil, false
	}
	s.moveToFront(e)
	return e.value, true
}

// put replaces any existing entry for key with a fresh one.
func (s *Store) put(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if e, ok := s.entries[key]; ok {
		e.value = value
		e.created = now
		s.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, created: now}
	s.entries[key] = e
	s.addToFront(e)

	if s.maxEntries > 0 && len(s.entries) > s.maxEntries {
		s.evictTail()
	}
}

func (s *Store) moveToFront(e *entry) {
	if e == s.head {
		return
	}
	s.remove(e)
	s.addToFront(e)
}

func (s *Store) addToFront(e *entry) {
	e.next = s.head
	e.prev = nil
	if s.head != nil {
		s.head.prev = e
	}
	s.head = e
	if s.tail == nil {
		s.tail = e
	}
}

func (s *Store) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		s.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		s.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (s *Store) evictTail() {
	if s.tail == nil {
		return
	}
	delete(s.entries, s.tail.key)
	s.remove(s.tail)
}
