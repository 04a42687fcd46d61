package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Scaler is the per-channel min-max normalisation model: a raw channel value
// v maps to (v-min)/(max-min), unclamped, so values outside the fitted range
// land outside [0, 1].
type Scaler struct {
	Min []float64
	Max []float64
}

// FitScaler computes per-channel bounds from a samples x channels matrix.
func FitScaler(x mat.Matrix) (*Scaler, error) {
	rows, cols := x.Dims()
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("cannot fit scaler on %dx%d matrix", rows, cols)
	}
	s := &Scaler{Min: make([]float64, cols), Max: make([]float64, cols)}
	for c := 0; c < cols; c++ {
		lo, hi := x.At(0, c), x.At(0, c)
		for r := 1; r < rows; r++ {
			v := x.At(r, c)
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		s.Min[c] = lo
		s.Max[c] = hi
	}
	return s, nil
}

// Channels returns the number of channels the scaler was fitted on.
func (s *Scaler) Channels() int { return len(s.Min) }

// TransformRow scales one feature vector into dst, which must have the same
// length. A channel with zero fitted range maps to 0.
func (s *Scaler) TransformRow(src, dst []float64) error {
	if len(src) != len(s.Min) || len(dst) != len(s.Min) {
		return fmt.Errorf("vector has %d channels, scaler fitted on %d", len(src), len(s.Min))
	}
	for c := range src {
		span := s.Max[c] - s.Min[c]
		if span == 0 {
			dst[c] = 0
			continue
		}
		dst[c] = (src[c] - s.Min[c]) / span
	}
	return nil
}

// Transform scales a samples x channels matrix into a new matrix.
func (s *Scaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	rows, cols := x.Dims()
	if cols != len(s.Min) {
		return nil, fmt.Errorf("matrix has %d channels, scaler fitted on %d", cols, len(s.Min))
	}
	out := mat.NewDense(rows, cols, nil)
	src := make([]float64, cols)
	dst := make([]float64, cols)
	for r := 0; r < rows; r++ {
		mat.Row(src, r, x)
		if err := s.TransformRow(src, dst); err != nil {
			return nil, err
		}
		out.SetRow(r, dst)
	}
	return out, nil
}

// TransformRows scales a slice-of-rows feature set in place.
func (s *Scaler) TransformRows(rows [][]float64) error {
	for i := range rows {
		if err := s.TransformRow(rows[i], rows[i]); err != nil {
			return err
		}
	}
	return nil
}
