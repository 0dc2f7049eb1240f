// Package favorites keeps the set of train ids a user marked.
package favorites

import (
	"slices"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Set is a thread-safe set of train ids.
type Set struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewSet creates a Set holding ids.
func NewSet(ids ...int64) *Set {
	s := &Set{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a favorite.
func (s *Set) Has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Toggle adds id if missing and removes it otherwise. It reports whether id is
// a favorite afterwards.
func (s *Set) Toggle(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		delete(s.ids, id)
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Clear removes every id.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = make(map[int64]struct{})
}

// Len is the number of favorites.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}

// IDs returns the favorites in ascending order.
func (s *Set) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Marshal serializes the set as a JSON array of numbers.
func (s *Set) Marshal() ([]byte, error) {
	return json.Marshal(s.IDs())
}

// Unmarshal parses a JSON array of ids. Anything else yields an empty set.
func Unmarshal(data []byte) *Set {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return NewSet()
	}
	return NewSet(ids...)
}
