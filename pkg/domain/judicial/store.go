package judicial

import (
	"sort"
	"sync"
)

// Store is an append-only list of opinions shared by the judge workers.
type Store struct {
	mu       sync.RWMutex
	opinions []Opinion
}

func NewStore() *Store {
	return &Store{}
}

// Append concatenates opinions in order. No deduplication is performed.
func (s *Store) Append(ops ...Opinion) {
	if len(ops) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opinions = append(s.opinions, ops...)
}

// All returns a copy of the stored opinions.
func (s *Store) All() []Opinion {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Opinion, len(s.opinions))
	copy(out, s.opinions)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.opinions)
}

// Group indexes opinions by criterion and judge. When a judge appears twice
// for the same criterion the later opinion wins.
func Group(ops []Opinion) map[string]map[Judge]Opinion {
	out := make(map[string]map[Judge]Opinion)
	for _, op := range ops {
		byJudge, ok := out[op.CriterionID]
		if !ok {
			byJudge = make(map[Judge]Opinion, 3)
			out[op.CriterionID] = byJudge
		}
		byJudge[op.Judge] = op
	}
	return out
}

// Coverage describes which criteria received an opinion from every judge.
type Coverage struct {
	FullyCovered []string
	Missing      map[string][]Judge
}

// Complete is true when no criterion is missing a judge.
func (c Coverage) Complete() bool {
	return len(c.Missing) == 0
}

// CheckCoverage computes judge coverage per criterion.
func CheckCoverage(ops []Opinion) Coverage {
	cov := Coverage{Missing: make(map[string][]Judge)}
	grouped := Group(ops)
	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		var missing []Judge
		for _, j := range Judges() {
			if _, ok := grouped[id][j]; !ok {
				missing = append(missing, j)
			}
		}
		if len(missing) == 0 {
			cov.FullyCovered = append(cov.FullyCovered, id)
		} else {
			cov.Missing[id] = missing
		}
	}
	return cov
}
