package noise

import (
	"fmt"
	"math"
)

// Source is a scalar noise field in three dimensions.
type Source interface {
	Noise3(x, y, z float64) (float64, error)
}

// Kind selects one of the two noise implementations.
type Kind string

const (
	KindClassic Kind = "classic"
	KindGrid    Kind = "grid"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindClassic, KindGrid:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("unknown noise kind %q", s)
	}
}

// Summation controls how octaves are combined.
type Summation string

const (
	// SumPlain adds every octave at full weight.
	SumPlain Summation = "plain"
	// SumDamped divides octave i by i+1.
	SumDamped Summation = "damped"
)

func ParseSummation(s string) (Summation, error) {
	switch Summation(s) {
	case SumPlain, SumDamped:
		return Summation(s), nil
	default:
		return "", fmt.Errorf("unknown octave summation %q", s)
	}
}

// Octaves sums octaves of src at doubling frequencies starting from 1.
func Octaves(src Source, octaves int, x, y, z float64, sum Summation) (float64, error) {
	value := 0.0
	for i := 0; i < octaves; i++ {
		scale := math.Pow(2, float64(i))
		n, err := src.Noise3(x*scale, y*scale, z*scale)
		if err != nil {
			return 0, fmt.Errorf("octave %d: %w", i, err)
		}
		if sum == SumDamped {
			n /= float64(i + 1)
		}
		value += n
	}
	return value, nil
}
