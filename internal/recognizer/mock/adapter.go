// Package mock provides a mock recognizer for testing without cloud
// credentials or a remote engine. It simulates realistic behavior:
// progressive interim transcripts, exactly one final per utterance, and an
// end-of-utterance signal after the final.
package mock

import (
	"context"
	"sync"
	"time"

	"prosody-caption-service/internal/recognizer"
)

// Utterance is one scripted utterance with progressive transcripts.
type Utterance struct {
	Interims   []string
	Final      string
	Confidence float64
}

// DefaultUtterances are sample utterances tuned for caption demos: short
// phrases with clear stress candidates.
var DefaultUtterances = []Utterance{
	{
		Interims:   []string{"this is", "this is a", "this is a big"},
		Final:      "this is a big deal",
		Confidence: 0.95,
	},
	{
		Interims:   []string{"never", "never gonna"},
		Final:      "never gonna give you up",
		Confidence: 0.92,
	},
	{
		Interims:   []string{"watch", "watch the", "watch the words"},
		Final:      "watch the words grow",
		Confidence: 0.90,
	},
	{
		Interims:   []string{"go"},
		Final:      "go now",
		Confidence: 0.97,
	},
}

// Adapter implements recognizer.Adapter with scripted utterances, cycling
// through the script across sessions.
type Adapter struct {
	mu         sync.Mutex
	cb         recognizer.Callback
	utterances []Utterance
	uttIdx     int
	interimIdx int
	finalSent  bool
	delay      time.Duration
	closed     bool
}

// New creates a mock recognizer using DefaultUtterances with a small
// simulated processing delay.
func New() *Adapter {
	return NewScripted(DefaultUtterances, 50*time.Millisecond)
}

// NewScripted creates a mock recognizer with the given script and delay.
// A zero delay delivers results synchronously from SendAudio, which keeps
// tests deterministic.
func NewScripted(utterances []Utterance, delay time.Duration) *Adapter {
	return &Adapter{utterances: utterances, delay: delay}
}

// Start begins a mock session.
func (a *Adapter) Start(_ context.Context, cb recognizer.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	return nil
}

// SendAudio advances the script: one interim per audio frame, then the final
// and the end-of-utterance signal, then on to the next scripted utterance.
func (a *Adapter) SendAudio(_ context.Context, _ []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil || len(a.utterances) == 0 {
		return nil
	}

	utt := a.utterances[a.uttIdx%len(a.utterances)]

	if a.interimIdx < len(utt.Interims) {
		text := utt.Interims[a.interimIdx]
		a.interimIdx++
		a.deliver(func(cb recognizer.Callback) { cb.OnInterim(text) })
		return nil
	}

	if !a.finalSent {
		a.finalSent = true
		a.deliver(func(cb recognizer.Callback) {
			cb.OnFinal(utt.Final, utt.Confidence)
			cb.OnEndOfUtterance()
		})
		// Next frame starts the next scripted utterance.
		a.uttIdx++
		a.interimIdx = 0
		a.finalSent = false
	}
	return nil
}

// deliver invokes fn either synchronously (zero delay) or after the
// simulated processing delay. Caller holds the lock.
func (a *Adapter) deliver(fn func(recognizer.Callback)) {
	cb := a.cb
	if a.delay == 0 {
		fn(cb)
		return
	}
	go func() {
		time.Sleep(a.delay)
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if !closed {
			fn(cb)
		}
	}()
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}
