// Package density decides voxel occupancy from noise and height maps.
package density

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"terraingen/internal/noise"
)

var (
	ErrHeightMapRequired = errors.New("density: height map mode requires a height map")
	ErrHeightMapBounds   = errors.New("density: height map does not cover the voxel column")
	ErrInvalidExtents    = errors.New("density: extents must be positive")
)

// Mode selects the density function.
type Mode string

const (
	// ModeProcedural derives density purely from noise and falloff curves.
	ModeProcedural Mode = "procedural"
	// ModeHeightMap fills every voxel at or below the column's height.
	ModeHeightMap Mode = "heightmap"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeProcedural, ModeHeightMap:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown density mode %q", s)
	}
}

const (
	detailOctaves = 5

	plateauStart = 0.8
	plateauEnd   = 0.9

	caveCutoff = 0.5

	// minCenterDenominator bounds the centre falloff near its pole.
	minCenterDenominator = 1e-6
)

// Coord is an integer voxel position.
type Coord struct {
	X, Y, Z int
}

// Extents is the size of the voxel block along each axis.
type Extents struct {
	X, Y, Z int
}

func (e Extents) Valid() bool {
	return e.X > 0 && e.Y > 0 && e.Z > 0
}

// Volume returns the number of voxels in the block.
func (e Extents) Volume() int {
	return e.X * e.Y * e.Z
}

// Fraction returns c normalized by e along each axis.
func (e Extents) Fraction(c Coord) (float64, float64, float64) {
	return float64(c.X) / float64(e.X), float64(c.Y) / float64(e.Y), float64(c.Z) / float64(e.Z)
}

// Field binds a density function to its inputs.
type Field struct {
	Mode      Mode
	Source    noise.Source
	Heights   mat.Matrix
	Threshold float64
	Octaves   int
	Summation noise.Summation
}

// Occupied reports whether the voxel at c holds material.
func (f *Field) Occupied(c Coord, e Extents) (bool, error) {
	if !e.Valid() {
		return false, fmt.Errorf("%w: %+v", ErrInvalidExtents, e)
	}
	switch f.Mode {
	case ModeHeightMap:
		return f.heightMapOccupied(c, e)
	case ModeProcedural:
		return f.proceduralOccupied(c, e)
	default:
		return false, fmt.Errorf("unknown density mode %q", f.Mode)
	}
}

// Compute evaluates a single voxel without building a Field. heights may be
// nil in procedural mode.
func Compute(c Coord, e Extents, heights mat.Matrix, src noise.Source, threshold float64, mode Mode) (bool, error) {
	f := Field{
		Mode:      mode,
		Source:    src,
		Heights:   heights,
		Threshold: threshold,
		Octaves:   detailOctaves,
		Summation: noise.SumPlain,
	}
	return f.Occupied(c, e)
}

func (f *Field) heightMapOccupied(c Coord, e Extents) (bool, error) {
	if f.Heights == nil {
		return false, ErrHeightMapRequired
	}
	rows, cols := f.Heights.Dims()
	if c.X < 0 || c.Y < 0 || c.X >= cols || c.Y >= rows {
		return false, fmt.Errorf("%w: column (%d,%d) outside %dx%d", ErrHeightMapBounds, c.X, c.Y, cols, rows)
	}

	_, _, zf := e.Fraction(c)
	density := 1.0
	if zf > f.Heights.At(c.Y, c.X) {
		density = 0
	}
	return density >= f.Threshold, nil
}

func (f *Field) proceduralOccupied(c Coord, e Extents) (bool, error) {
	xf, yf, zf := e.Fraction(c)

	caves, err := noise.Octaves(f.Source, 1, xf*5, yf*5, zf*5, f.Summation)
	if err != nil {
		return false, fmt.Errorf("cave mask: %w", err)
	}
	if math.Pow(caves, 3) < caveCutoff {
		// Carved voxels have zero density; the other terms cannot change that.
		return 0 > f.Threshold, nil
	}

	octaves := f.Octaves
	if octaves <= 0 {
		octaves = detailOctaves
	}
	detail, err := noise.Octaves(f.Source, octaves, xf, yf, zf*0.5, f.Summation)
	if err != nil {
		return false, fmt.Errorf("detail octaves: %w", err)
	}
	shape, err := f.Source.Noise3((xf+1)*3, (yf+1)*3, (zf+1)*3)
	if err != nil {
		return false, fmt.Errorf("shape noise: %w", err)
	}

	density := detail * CenterFalloff(xf, yf, zf) * PlateauFalloff(zf)
	density *= math.Pow(math.Max(shape+0.4, 0), 1.8)
	return density > f.Threshold, nil
}

// PlateauFalloff is 1 up to 0.8, ramps linearly to 0 at 0.9 and stays 0 above.
func PlateauFalloff(zf float64) float64 {
	switch {
	case zf <= plateauStart:
		return 1
	case zf < plateauEnd:
		return 1 - (zf-plateauStart)*10
	default:
		return 0
	}
}

// CenterFalloff concentrates mass around the top centre of the block.
func CenterFalloff(xf, yf, zf float64) float64 {
	dx := (xf - 0.5) * 1.5
	dy := (yf - 0.5) * 1.5
	dz := (zf - 1.0) * 0.8
	return 0.1 / math.Max(dx*dx+dy*dy+dz*dz, minCenterDenominator)
}
