package classify

import (
	"testing"

	"prosody-caption-service/internal/models"
)

func TestScoreToLevel_Boundaries(t *testing.T) {
	th := Thresholds{SmallMax: 0.35, NormalMax: 0.65}

	tests := []struct {
		score float64
		want  models.SizeLevel
	}{
		{0.0, models.SizeSmall},
		{0.34, models.SizeSmall},
		{0.35, models.SizeNormal}, // strict < for smallMax
		{0.5, models.SizeNormal},
		{0.64, models.SizeNormal},
		{0.65, models.SizeLarge}, // strict < for normalMax
		{1.0, models.SizeLarge},
	}

	for _, tt := range tests {
		if got := ScoreToLevel(tt.score, th); got != tt.want {
			t.Errorf("ScoreToLevel(%v) = %v, want %v", tt.score, got, tt.want)
		}
	}
}

func TestDefaultThresholds(t *testing.T) {
	th := DefaultThresholds()
	if th.SmallMax != DefaultSmallMax || th.NormalMax != DefaultNormalMax {
		t.Errorf("unexpected defaults: %+v", th)
	}
	if !th.Valid() {
		t.Error("default thresholds must satisfy the ordering invariant")
	}
}

func TestThresholds_Valid(t *testing.T) {
	tests := []struct {
		name string
		th   Thresholds
		want bool
	}{
		{"ordered", Thresholds{0.3, 0.7}, true},
		{"equal", Thresholds{0.5, 0.5}, true},
		{"degenerate zero", Thresholds{0, 0}, true},
		{"inverted", Thresholds{0.7, 0.3}, false},
		{"negative", Thresholds{-0.1, 0.5}, false},
		{"above one", Thresholds{0.5, 1.1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.th.Valid(); got != tt.want {
				t.Errorf("Valid(%+v) = %v, want %v", tt.th, got, tt.want)
			}
		})
	}
}
