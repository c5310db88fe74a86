// Package transcript holds the displayable caption state for one session.
package transcript

import "prosody-caption-service/internal/models"

// DefaultMaxWords bounds the finalized word history kept for rendering.
const DefaultMaxWords = 20

// State is the append-only list of finalized scored words plus the transient
// interim word list.
//
// Finalized words are never recomputed or mutated after append; this is the
// compute-once guarantee that keeps rendered captions from flickering. The
// interim list is replaced wholesale on every interim result and cleared when
// no interim text is pending. Owned by the session loop; not safe for
// concurrent use.
type State struct {
	maxWords  int
	finalized []models.ScoredWord
	interim   []models.ScoredWord
}

// New creates an empty transcript state with the given display budget.
// Non-positive budgets fall back to DefaultMaxWords.
func New(maxWords int) *State {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &State{maxWords: maxWords}
}

// MaxWords returns the finalized display budget.
func (s *State) MaxWords() int {
	return s.maxWords
}

// AppendFinal appends a batch of finalized words and trims the front of the
// finalized sequence to the display budget. Eviction is pure FIFO, oldest
// first.
func (s *State) AppendFinal(words []models.ScoredWord) {
	if len(words) == 0 {
		return
	}
	s.finalized = append(s.finalized, words...)
	if over := len(s.finalized) - s.maxWords; over > 0 {
		s.finalized = append(s.finalized[:0], s.finalized[over:]...)
	}
}

// ReplaceInterim replaces the interim word list wholesale.
func (s *State) ReplaceInterim(words []models.ScoredWord) {
	s.interim = s.interim[:0]
	s.interim = append(s.interim, words...)
}

// ClearInterim empties the interim word list.
func (s *State) ClearInterim() {
	s.interim = s.interim[:0]
}

// FinalizedLen returns the number of finalized words retained.
func (s *State) FinalizedLen() int {
	return len(s.finalized)
}

// InterimLen returns the number of pending interim words.
func (s *State) InterimLen() int {
	return len(s.interim)
}

// Snapshot returns a copy of finalized ++ interim, the sequence handed to the
// renderer after every mutation.
func (s *State) Snapshot() []models.ScoredWord {
	out := make([]models.ScoredWord, 0, len(s.finalized)+len(s.interim))
	out = append(out, s.finalized...)
	out = append(out, s.interim...)
	return out
}

// Finalized returns a copy of the finalized sequence.
func (s *State) Finalized() []models.ScoredWord {
	out := make([]models.ScoredWord, len(s.finalized))
	copy(out, s.finalized)
	return out
}

// Reset discards all state. Safe to call at any time; no ordered teardown.
func (s *State) Reset() {
	s.finalized = s.finalized[:0]
	s.interim = s.interim[:0]
}
