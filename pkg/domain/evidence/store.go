package evidence

import (
	"sort"
	"sync"
)

// Partial is the output of a single producer, keyed by criterion id.
type Partial map[string][]Evidence

// Add appends e under its own criterion id.
func (p Partial) Add(e Evidence) {
	p[e.CriterionID] = append(p[e.CriterionID], e)
}

// Store accumulates evidence from concurrent producers. Lists for a key that
// already exists are extended, never replaced.
type Store struct {
	mu    sync.RWMutex
	items map[string][]Evidence
}

func NewStore() *Store {
	return &Store{items: make(map[string][]Evidence)}
}

// Merge folds a partial mapping into the store.
func (s *Store) Merge(p Partial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, list := range p {
		s.items[id] = append(s.items[id], list...)
	}
}

// Append adds a single record to a criterion's list.
func (s *Store) Append(criterionID string, e Evidence) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[criterionID] = append(s.items[criterionID], e)
}

// Get returns a copy of the list for a criterion.
func (s *Store) Get(criterionID string) []Evidence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.items[criterionID]
	if list == nil {
		return nil
	}
	out := make([]Evidence, len(list))
	copy(out, list)
	return out
}

// Has reports whether a key is present, even if its list is empty.
func (s *Store) Has(criterionID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.items[criterionID]
	return ok
}

// Keys returns criterion ids in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a deep copy of the whole mapping.
func (s *Store) Snapshot() map[string][]Evidence {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Evidence, len(s.items))
	for k, v := range s.items {
		cp := make([]Evidence, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// HasAny is true when at least one criterion has a non-empty list.
func (s *Store) HasAny() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.items {
		if len(v) > 0 {
			return true
		}
	}
	return false
}

// Counts summarises the store contents.
type Counts struct {
	Criteria int
	Items    int
	Found    int
	Missing  int
}

func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c Counts
	for _, v := range s.items {
		c.Criteria++
		for _, e := range v {
			c.Items++
			if e.Found {
				c.Found++
			} else {
				c.Missing++
			}
		}
	}
	return c
}
