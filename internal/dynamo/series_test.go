package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestSeriesValidate(t *testing.T) {
	tests := []struct {
		name    string
		series  Series
		wantErr error
	}{
		{"valid", Series{T: []float64{0, 1, 2}, U: []float64{0, 1, 1}, Y: []float64{0, 0, 1}}, nil},
		{"short u", Series{T: []float64{0, 1, 2}, U: []float64{0, 1}, Y: []float64{0, 0, 1}}, ErrLengthMismatch},
		{"repeated time", Series{T: []float64{0, 1, 1}, U: []float64{0, 1, 1}, Y: []float64{0, 0, 1}}, ErrNotMonotonic},
		{"decreasing time", Series{T: []float64{0, 2, 1}, U: []float64{0, 1, 1}, Y: []float64{0, 0, 1}}, ErrNotMonotonic},
		{"empty", Series{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.series.Validate()
			if tt.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSeriesSlice(t *testing.T) {
	s := Series{T: []float64{0, 1, 2, 3}, U: []float64{0, 0, 1, 1}, Y: []float64{5, 5, 6, 7}}

	w := s.Slice(1, 10)
	if w.Len() != 3 {
		t.Fatalf("expected 3 samples, got %d", w.Len())
	}
	if w.Y[0] != 5 || w.Y[2] != 7 {
		t.Errorf("unexpected window %v", w.Y)
	}

	if s.Slice(3, 1).Len() != 0 {
		t.Error("inverted bounds should give an empty window")
	}
}

func TestFitErrorUnwrap(t *testing.T) {
	err := &FitError{Model: "FOPDT", N: 4, Min: 10, Wrapped: ErrInsufficientData}
	if !errors.Is(err, ErrInsufficientData) {
		t.Error("expected FitError to unwrap to ErrInsufficientData")
	}
	if err.Error() == "" {
		t.Error("expected non-empty message")
	}
}

func TestStateIsValid(t *testing.T) {
	if !(State{1, 2}).IsValid() {
		t.Error("finite state reported invalid")
	}
	if (State{1, math.NaN()}).IsValid() {
		t.Error("NaN state reported valid")
	}
}
