// Package buffer provides a time-windowed store of recent prominence events.
package buffer

import "prosody-caption-service/internal/models"

// DefaultWindowMs is the default retention window for prominence events.
const DefaultWindowMs int64 = 3000

// Buffer retains prominence events inside a sliding time window.
//
// Events are expected to arrive in non-decreasing timestamp order but this is
// not enforced; minor jitter is stored as-is and consumers must tolerate it.
// Growth is bounded only by Prune, which callers invoke as part of their own
// event-arrival handling. Not safe for concurrent use: the session loop owns
// the buffer and serializes all access.
type Buffer struct {
	windowMs int64
	events   []models.ProminenceEvent
}

// New creates an empty buffer with the given retention window.
// Non-positive windows fall back to DefaultWindowMs.
func New(windowMs int64) *Buffer {
	if windowMs <= 0 {
		windowMs = DefaultWindowMs
	}
	return &Buffer{windowMs: windowMs}
}

// WindowMs returns the retention window in milliseconds.
func (b *Buffer) WindowMs() int64 {
	return b.windowMs
}

// Len returns the number of retained events.
func (b *Buffer) Len() int {
	return len(b.events)
}

// Push appends an event to the tail.
func (b *Buffer) Push(ev models.ProminenceEvent) {
	b.events = append(b.events, ev)
}

// Prune discards every event with timestamp <= now - window.
func (b *Buffer) Prune(nowMs int64) {
	cutoff := nowMs - b.windowMs
	i := 0
	for i < len(b.events) && b.events[i].TimestampMs <= cutoff {
		i++
	}
	if i == 0 {
		return
	}
	b.events = append(b.events[:0], b.events[i:]...)
}

// QueryNear returns all retained events with |timestamp - center| < tolerance,
// in original order. The returned slice is a copy; callers may keep it.
func (b *Buffer) QueryNear(centerMs, toleranceMs int64) []models.ProminenceEvent {
	var out []models.ProminenceEvent
	for _, ev := range b.events {
		d := ev.TimestampMs - centerMs
		if d < 0 {
			d = -d
		}
		if d < toleranceMs {
			out = append(out, ev)
		}
	}
	return out
}

// Clear drops all retained events.
func (b *Buffer) Clear() {
	b.events = b.events[:0]
}
