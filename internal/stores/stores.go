// Package stores holds the cross-call shared state: device snapshots,
// macro controllers, parameter maps, and effect-chain templates. Each
// store owns its own mutex; critical sections copy out and release.
package stores

import (
	"sort"
	"sync"

	"github.com/livebridge/livebridge/internal/dawerr"
)

// memStore is a mutex-guarded map keyed by caller-supplied identifiers.
// Iteration returns copies of the values, not aliases.
type memStore[T any] struct {
	mu    sync.Mutex
	items map[string]T
}

func newMemStore[T any]() *memStore[T] {
	return &memStore[T]{items: map[string]T{}}
}

func (s *memStore[T]) put(id string, v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = v
}

func (s *memStore[T]) get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[id]
	return v, ok
}

func (s *memStore[T]) delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	delete(s.items, id)
	return ok
}

func (s *memStore[T]) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (s *memStore[T]) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func notFound(what, id string) error {
	return dawerr.New(dawerr.KindInvalidInput, "%s %q not found", what, id)
}
