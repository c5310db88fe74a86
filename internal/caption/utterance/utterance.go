// Package utterance provides utterance ID generation and lifecycle tracking
// for the caption pipeline.
package utterance

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// State is the lifecycle state of one utterance.
type State int

const (
	// StateOpen - utterance is live, interim results may replace each other.
	StateOpen State = iota
	// StateFinalScored - final result aligned and scored, waiting for the
	// next utterance boundary.
	StateFinalScored
	// StateDropped - utterance abandoned after a recognizer error; its
	// interim words are discarded and no final batch is appended.
	StateDropped
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalScored:
		return "FINAL_SCORED"
	case StateDropped:
		return "DROPPED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// Errors for invalid lifecycle transitions.
var (
	ErrAlreadyScored  = errors.New("final result already scored for this utterance")
	ErrUtteranceEnded = errors.New("utterance has ended")
)

// Lifecycle tracks a single utterance through the pipeline.
//
// Transitions:
//
//	OPEN → FINAL_SCORED → (Advance) → OPEN (new ID)
//	OPEN → DROPPED      → (Advance) → OPEN (new ID)
//
// Interim results are accepted only while OPEN; the final result is scored
// exactly once. Owned by the session loop; no internal locking.
type Lifecycle struct {
	id    string
	state State
}

// NewLifecycle starts a lifecycle in OPEN state with the given utterance ID.
func NewLifecycle(id string) *Lifecycle {
	return &Lifecycle{id: id, state: StateOpen}
}

// ID returns the current utterance ID.
func (l *Lifecycle) ID() string {
	return l.id
}

// State returns the current state.
func (l *Lifecycle) State() State {
	return l.state
}

// AcceptInterim reports whether an interim result may replace the interim
// word list. Interim text arriving after the final has been scored belongs to
// the next utterance and is held back until Advance.
func (l *Lifecycle) AcceptInterim() error {
	switch l.state {
	case StateOpen:
		return nil
	case StateFinalScored, StateDropped:
		return ErrUtteranceEnded
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// AcceptFinal validates and records the single final scoring for this
// utterance, transitioning to FINAL_SCORED.
func (l *Lifecycle) AcceptFinal() error {
	switch l.state {
	case StateOpen:
		l.state = StateFinalScored
		return nil
	case StateFinalScored:
		return ErrAlreadyScored
	case StateDropped:
		return ErrUtteranceEnded
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Drop abandons the utterance without scoring a final. Returns false if the
// utterance had already ended.
func (l *Lifecycle) Drop() bool {
	if l.state != StateOpen {
		return false
	}
	l.state = StateDropped
	return true
}

// Advance begins the next utterance with a fresh ID.
func (l *Lifecycle) Advance(newID string) {
	l.id = newID
	l.state = StateOpen
}

// Generator produces monotonically numbered utterance IDs for a session.
// Safe for concurrent use.
type Generator struct {
	counter uint64
}

// NewGenerator creates an ID generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next returns the next utterance ID scoped to the session.
func (g *Generator) Next(sessionID string) string {
	n := atomic.AddUint64(&g.counter, 1)
	return fmt.Sprintf("%s-utt-%d", sessionID, n)
}
