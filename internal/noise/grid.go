package noise

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var (
	ErrUninitializedGrid    = errors.New("noise: gradient grid not generated")
	ErrCoordinateOutOfRange = errors.New("noise: coordinate out of range")
	ErrInvalidGridSize      = errors.New("noise: grid dimensions must be positive")
)

// Float64Source supplies uniform values in [0, 1). *rand.Rand from
// math/rand/v2 satisfies it.
type Float64Source interface {
	Float64() float64
}

// Cell holds the arena indices of a cell's eight corner gradients, ordered
// 000,100,010,110,001,101,011,111.
type Cell [8]int32

// sampleOffset is where every cell is evaluated, independent of the query's
// fractional position.
var sampleOffset = r3.Vec{X: 0.5, Y: 0.5, Z: 0.5}

// Grid is a cell-gradient noise field. Neighbouring cells reference the same
// gradient entries for their shared corners, so the field tiles without seams.
type Grid struct {
	rng Float64Source

	sizeX, sizeY, sizeZ int
	gradients           []r3.Vec
	cells               []Cell
}

func NewGrid(rng Float64Source) *Grid {
	return &Grid{rng: rng}
}

// Generate discards any previous grid and builds sizeX*sizeY*sizeZ cells.
// The previous grid is kept if the dimensions are invalid.
func (g *Grid) Generate(sizeX, sizeY, sizeZ int) error {
	if sizeX <= 0 || sizeY <= 0 || sizeZ <= 0 {
		return fmt.Errorf("%w: %dx%dx%d", ErrInvalidGridSize, sizeX, sizeY, sizeZ)
	}

	total := sizeX * sizeY * sizeZ
	cells := make([]Cell, total)
	gradients := make([]r3.Vec, 0, total*2)
	index := func(x, y, z int) int {
		return ((z*sizeY)+y)*sizeX + x
	}

	for z := 0; z < sizeZ; z++ {
		for y := 0; y < sizeY; y++ {
			for x := 0; x < sizeX; x++ {
				var fresh [8]r3.Vec
				for i := range fresh {
					fresh[i] = g.randomUnit()
				}

				cell := Cell{-1, -1, -1, -1, -1, -1, -1, -1}
				if x > 0 {
					prev := cells[index(x-1, y, z)]
					cell[0], cell[1], cell[2], cell[3] = prev[4], prev[5], prev[6], prev[7]
				}
				if y > 0 {
					prev := cells[index(x, y-1, z)]
					cell[0], cell[2], cell[4], cell[6] = prev[1], prev[3], prev[5], prev[7]
				}
				if z > 0 {
					prev := cells[index(x, y, z-1)]
					cell[0], cell[1], cell[4], cell[5] = prev[2], prev[3], prev[6], prev[7]
				}

				for i, ref := range cell {
					if ref >= 0 {
						continue
					}
					cell[i] = int32(len(gradients))
					gradients = append(gradients, fresh[i])
				}
				cells[index(x, y, z)] = cell
			}
		}
	}

	g.sizeX, g.sizeY, g.sizeZ = sizeX, sizeY, sizeZ
	g.gradients = gradients
	g.cells = cells
	return nil
}

// Size reports the grid dimensions; all zero before Generate.
func (g *Grid) Size() (int, int, int) {
	return g.sizeX, g.sizeY, g.sizeZ
}

// Gradients returns copies of the eight corner gradients of cell (x, y, z).
func (g *Grid) Gradients(x, y, z int) ([8]r3.Vec, error) {
	var out [8]r3.Vec
	if g.cells == nil {
		return out, ErrUninitializedGrid
	}
	if x < 0 || y < 0 || z < 0 || x >= g.sizeX || y >= g.sizeY || z >= g.sizeZ {
		return out, fmt.Errorf("%w: cell (%d,%d,%d)", ErrCoordinateOutOfRange, x, y, z)
	}
	for i, ref := range g.cells[g.cellIndex(x, y, z)] {
		out[i] = g.gradients[ref]
	}
	return out, nil
}

// Noise3 wraps each coordinate into the grid and evaluates the containing
// cell at its centre. Fractional positions inside a cell do not change the
// result.
func (g *Grid) Noise3(x, y, z float64) (float64, error) {
	if g.cells == nil {
		return 0, ErrUninitializedGrid
	}
	cx, err := wrapCoordinate(x, g.sizeX)
	if err != nil {
		return 0, err
	}
	cy, err := wrapCoordinate(y, g.sizeY)
	if err != nil {
		return 0, err
	}
	cz, err := wrapCoordinate(z, g.sizeZ)
	if err != nil {
		return 0, err
	}

	cell := g.cells[g.cellIndex(cx, cy, cz)]
	var n [8]float64
	for i, ref := range cell {
		n[i] = r3.Dot(g.gradients[ref], sampleOffset)
	}

	t := fade(sampleOffset.X)
	return trilinear(n, t, fade(sampleOffset.Y), fade(sampleOffset.Z)), nil
}

func (g *Grid) cellIndex(x, y, z int) int {
	return ((z*g.sizeY)+y)*g.sizeX + x
}

// randomUnit normalizes a vector with uniform [0,1) components. Draws that
// collapse to zero length are repeated.
func (g *Grid) randomUnit() r3.Vec {
	for {
		v := r3.Vec{X: g.rng.Float64(), Y: g.rng.Float64(), Z: g.rng.Float64()}
		if r3.Norm(v) > 0 {
			return r3.Unit(v)
		}
	}
}

func wrapCoordinate(v float64, size int) (int, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %v", ErrCoordinateOutOfRange, v)
	}
	idx := int(math.Floor(math.Mod(v, float64(size))))
	if idx >= size {
		idx = size - 1
	}
	return idx, nil
}
