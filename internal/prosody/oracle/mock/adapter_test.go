package mock

import (
	"context"
	"testing"

	"prosody-caption-service/internal/models"
)

type recordingCallback struct {
	events    []models.ProminenceEvent
	calStarts int
	calEnds   int
	errs      []error
}

func (r *recordingCallback) OnProminence(ev models.ProminenceEvent) { r.events = append(r.events, ev) }
func (r *recordingCallback) OnCalibrationStart()                    { r.calStarts++ }
func (r *recordingCallback) OnCalibrationEnd()                      { r.calEnds++ }
func (r *recordingCallback) OnError(err error)                      { r.errs = append(r.errs, err) }

func TestAdapter_EmitsScriptedEvents(t *testing.T) {
	a := New()
	cb := &recordingCallback{}
	ctx := context.Background()

	if err := a.Start(ctx, cb); err != nil {
		t.Fatalf("unexpected start error: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := a.SendAudio(ctx, nil, int64(100*(i+1))); err != nil {
			t.Fatalf("chunk %d: unexpected error: %v", i, err)
		}
	}

	if len(cb.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(cb.events))
	}
	for i, ev := range cb.events {
		wantTs := int64(100 * (i + 1))
		if ev.TimestampMs != wantTs {
			t.Errorf("event %d: expected timestamp %d, got %d", i, wantTs, ev.TimestampMs)
		}
		if ev.Score != DefaultScript[i].Score {
			t.Errorf("event %d: expected score %v, got %v", i, DefaultScript[i].Score, ev.Score)
		}
	}
}

func TestAdapter_ScriptWraps(t *testing.T) {
	a := NewScripted(DefaultScript[:2])
	cb := &recordingCallback{}
	ctx := context.Background()
	_ = a.Start(ctx, cb)

	for i := 0; i < 5; i++ {
		_ = a.SendAudio(ctx, nil, int64(i))
	}

	if len(cb.events) != 5 {
		t.Fatalf("expected 5 events, got %d", len(cb.events))
	}
	if cb.events[2].Score != cb.events[0].Score {
		t.Errorf("expected script to wrap: event 2 score %v, event 0 score %v",
			cb.events[2].Score, cb.events[0].Score)
	}
}

func TestAdapter_CalibrationSuppressesEvents(t *testing.T) {
	a := New()
	cb := &recordingCallback{}
	ctx := context.Background()
	_ = a.Start(ctx, cb)

	if err := a.StartCalibration(ctx); err != nil {
		t.Fatalf("unexpected calibration error: %v", err)
	}
	if cb.calStarts != 1 {
		t.Fatalf("expected calibration start signal, got %d", cb.calStarts)
	}

	for i := 0; i < CalibrationChunks; i++ {
		_ = a.SendAudio(ctx, nil, int64(i))
	}

	if len(cb.events) != 0 {
		t.Errorf("expected no events during calibration, got %d", len(cb.events))
	}
	if cb.calEnds != 1 {
		t.Errorf("expected calibration end signal, got %d", cb.calEnds)
	}

	// Events resume after calibration.
	_ = a.SendAudio(ctx, nil, 999)
	if len(cb.events) != 1 {
		t.Errorf("expected 1 event after calibration, got %d", len(cb.events))
	}
}

func TestAdapter_NoEventsAfterClose(t *testing.T) {
	a := New()
	cb := &recordingCallback{}
	ctx := context.Background()
	_ = a.Start(ctx, cb)
	_ = a.Close()

	_ = a.SendAudio(ctx, nil, 100)
	if len(cb.events) != 0 {
		t.Errorf("expected no events after close, got %d", len(cb.events))
	}
}
