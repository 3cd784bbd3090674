package candidates

import (
	"sync"

	"CANProbe/internal/domain/models"
)

// RunningSet is the visible candidate set of a live session. Candidates
// are keyed by identity (can_id, model, byte_index, byte_end); a later
// candidate with the same identity supersedes the earlier one. Safe for
// concurrent use.
type RunningSet struct {
	mu    sync.Mutex
	order []models.CandidateKey
	byKey map[models.CandidateKey]models.Candidate
}

func NewRunningSet() *RunningSet {
	return &RunningSet{byKey: make(map[models.CandidateKey]models.Candidate)}
}

// Apply folds a batch into the set. With replaceAll (the live path, where
// the engine's latest batch is authoritative) the previous contents are
// dropped first; identity replacement still applies within the batch.
func (s *RunningSet) Apply(batch []models.Candidate, replaceAll bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if replaceAll {
		s.order = s.order[:0]
		s.byKey = make(map[models.CandidateKey]models.Candidate, len(batch))
	}
	for _, c := range batch {
		k := c.Key()
		if _, seen := s.byKey[k]; !seen {
			s.order = append(s.order, k)
		}
		s.byKey[k] = c
	}
}

// Snapshot returns the current candidates ranked. The returned slice is
// a copy; callers may hold it across further updates.
func (s *RunningSet) Snapshot() []models.Candidate {
	s.mu.Lock()
	cs := make([]models.Candidate, 0, len(s.order))
	for _, k := range s.order {
		cs = append(cs, s.byKey[k])
	}
	s.mu.Unlock()
	return Rank(cs)
}

// Len reports the number of distinct hypotheses held.
func (s *RunningSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byKey)
}

// Reset drops all candidates.
func (s *RunningSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.byKey = make(map[models.CandidateKey]models.Candidate)
}
