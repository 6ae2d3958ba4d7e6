// Package imaging filters height maps stored as gonum dense matrices, with rows
// indexed by y and columns by x. Every filter returns a new matrix and leaves
// its input untouched.
package imaging

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	ErrDegenerateRange   = errors.New("imaging: source image has zero dynamic range")
	ErrInvalidKernelSize = errors.New("imaging: kernel size must be odd for symmetry")
	ErrInvalidSigma      = errors.New("imaging: gaussian sigma must be positive")
)

// MinMax returns the smallest and largest sample of img.
func MinMax(img mat.Matrix) (float64, float64) {
	return mat.Min(img), mat.Max(img)
}

// RangeStretch remaps img linearly so its minimum lands on newMin and its
// maximum on newMax.
func RangeStretch(img mat.Matrix, newMin, newMax float64) (*mat.Dense, error) {
	if math.IsNaN(mat.Sum(img)) {
		return nil, fmt.Errorf("%w: image contains non-finite samples", ErrDegenerateRange)
	}
	lo, hi := MinMax(img)
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return nil, fmt.Errorf("%w: image contains non-finite samples", ErrDegenerateRange)
	}
	if hi == lo {
		return nil, fmt.Errorf("%w: all samples equal %v", ErrDegenerateRange, lo)
	}

	scale := (newMax - newMin) / (hi - lo)
	var out mat.Dense
	out.Apply(func(_, _ int, v float64) float64 {
		return (v-lo)*scale + newMin
	}, img)
	return &out, nil
}
