// Package recognizer defines the interface for speech recognition adapters.
package recognizer

import (
	"context"
	"errors"
)

// Callback receives recognition results from a provider.
type Callback interface {
	// OnInterim is called for each provisional transcript segment. The
	// text fully supersedes any previous interim text.
	OnInterim(text string)

	// OnFinal is called once per utterance with the segment the provider
	// will not revise further.
	OnFinal(text string, confidence float64)

	// OnEndOfUtterance is called when the provider detects end of speech.
	OnEndOfUtterance()

	// OnError is called when an error occurs during recognition.
	OnError(err error)
}

// Adapter is a streaming speech recognition provider (cloud, remote
// websocket, or mock).
type Adapter interface {
	// Start begins a streaming recognition session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends raw audio bytes to the provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}

// Transient recognition errors: recovered locally by restarting the adapter,
// never surfaced to the user.
var (
	// ErrNoSpeech indicates the provider heard no speech before timing out.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrAborted indicates the provider aborted the stream mid-session.
	ErrAborted = errors.New("recognition aborted")
)

// transientError wraps an error that should trigger an automatic restart.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// MarkTransient wraps err so IsTransient reports true for it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err is a recoverable recognition error.
func IsTransient(err error) bool {
	if errors.Is(err, ErrNoSpeech) || errors.Is(err, ErrAborted) {
		return true
	}
	var te *transientError
	return errors.As(err, &te)
}
