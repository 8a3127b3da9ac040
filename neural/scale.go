package neural

import (
	"math"

	"github.com/pkg/errors"
)

// Scaler min/max-normalises feature vectors.
type Scaler struct {
	Min []float64 `json:"min"`
	Max []float64 `json:"max"`
}

// FitScaler records the per-column range of rows.
func FitScaler(rows [][]float64) Scaler {
	if len(rows) == 0 {
		return Scaler{}
	}
	width := len(rows[0])
	s := Scaler{Min: make([]float64, width), Max: make([]float64, width)}
	for i := range s.Min {
		s.Min[i] = math.Inf(1)
		s.Max[i] = math.Inf(-1)
	}
	for _, row := range rows {
		for i, v := range row {
			s.Min[i] = math.Min(s.Min[i], v)
			s.Max[i] = math.Max(s.Max[i], v)
		}
	}
	return s
}

// Apply maps x into [0, 1] per column. Constant columns map to 0. Values
// outside the fitted range extrapolate linearly.
func (s Scaler) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if span := s.Max[i] - s.Min[i]; span > 0 {
			out[i] = (v - s.Min[i]) / span
		}
	}
	return out
}

func (s Scaler) validate(width int) error {
	if len(s.Min) != width || len(s.Max) != width {
		return errors.Errorf("scaler covers %d/%d columns, want %d", len(s.Min), len(s.Max), width)
	}
	return nil
}

// Range normalises the target amount.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

func FitRange(ys []float64) Range {
	if len(ys) == 0 {
		return Range{}
	}
	r := Range{Min: ys[0], Max: ys[0]}
	for _, y := range ys[1:] {
		r.Min = math.Min(r.Min, y)
		r.Max = math.Max(r.Max, y)
	}
	return r
}

func (r Range) Span() float64 {
	return r.Max - r.Min
}

func (r Range) Scale(y float64) float64 {
	if r.Span() <= 0 {
		return 0
	}
	return (y - r.Min) / r.Span()
}

func (r Range) Invert(v float64) float64 {
	return v*r.Span() + r.Min
}
