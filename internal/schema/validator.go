// Package schema validates outbound caption events before publication.
package schema

import (
	"fmt"

	"prosody-caption-service/internal/models"
)

// Validator checks caption events against the outbound contract. Events that
// fail validation are never published.
type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// Validate checks the required fields of an outbound event.
func (v *Validator) Validate(event any) error {
	switch ev := event.(type) {
	case models.CaptionInterim:
		return validateInterim(ev)
	case *models.CaptionInterim:
		return validateInterim(*ev)
	case models.CaptionFinal:
		return validateFinal(ev)
	case *models.CaptionFinal:
		return validateFinal(*ev)
	default:
		return fmt.Errorf("unknown event type %T", event)
	}
}

func validateInterim(ev models.CaptionInterim) error {
	if ev.EventType != "caption.interim" {
		return fmt.Errorf("interim event: unexpected eventType %q", ev.EventType)
	}
	if err := validateCommon(ev.SessionID, ev.UtteranceID, ev.TimestampMs); err != nil {
		return fmt.Errorf("interim event: %w", err)
	}
	if ev.Text == "" {
		return fmt.Errorf("interim event: empty text")
	}
	return nil
}

func validateFinal(ev models.CaptionFinal) error {
	if ev.EventType != "caption.final" {
		return fmt.Errorf("final event: unexpected eventType %q", ev.EventType)
	}
	if err := validateCommon(ev.SessionID, ev.UtteranceID, ev.TimestampMs); err != nil {
		return fmt.Errorf("final event: %w", err)
	}
	if len(ev.Words) == 0 {
		return fmt.Errorf("final event: no words")
	}
	for i, w := range ev.Words {
		if w.Text == "" {
			return fmt.Errorf("final event: word %d has empty text", i)
		}
		switch w.SizeLevel {
		case models.SizeSmall, models.SizeNormal, models.SizeLarge:
		default:
			return fmt.Errorf("final event: word %d has invalid size level %q", i, w.SizeLevel)
		}
	}
	if ev.Confidence < 0 || ev.Confidence > 1 {
		return fmt.Errorf("final event: confidence %v out of range", ev.Confidence)
	}
	return nil
}

func validateCommon(sessionID, utteranceID string, timestampMs int64) error {
	if sessionID == "" {
		return fmt.Errorf("missing sessionId")
	}
	if utteranceID == "" {
		return fmt.Errorf("missing utteranceId")
	}
	if timestampMs < 0 {
		return fmt.Errorf("negative timestamp %d", timestampMs)
	}
	return nil
}
