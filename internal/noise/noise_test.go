package noise

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPermutationMirrorsLowerHalf(t *testing.T) {
	tables := map[string]*Permutation{
		"reference": NewPermutation(),
		"shuffled":  ShuffledPermutation(rand.New(rand.NewPCG(7, 11))),
	}
	for name, perm := range tables {
		t.Run(name, func(t *testing.T) {
			seen := make(map[uint8]bool, 256)
			for i := 0; i < 256; i++ {
				if perm[256+i] != perm[i] {
					t.Fatalf("entry %d not mirrored: %d vs %d", i, perm[i], perm[256+i])
				}
				seen[perm[i]] = true
			}
			if len(seen) != 256 {
				t.Fatalf("expected a permutation of 256 values, got %d distinct", len(seen))
			}
		})
	}
	if NewPermutation()[0] != 151 || NewPermutation()[255] != 180 {
		t.Fatalf("reference permutation changed")
	}
}

func TestClassicNoiseZeroOnLatticePoints(t *testing.T) {
	c := NewClassic(nil)
	for _, p := range [][3]float64{{0, 0, 0}, {1, 2, 3}, {17, 250, 4}, {-3, -8, 12}} {
		v, err := c.Noise3(p[0], p[1], p[2])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != 0 {
			t.Fatalf("noise at lattice point %v = %f, want 0", p, v)
		}
	}
}

func TestClassicNoisePeriodicAndBounded(t *testing.T) {
	c := NewClassic(nil)
	rng := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 2000; i++ {
		x := float64(rng.IntN(1024)) / 4
		y := float64(rng.IntN(1024)) / 4
		z := float64(rng.IntN(1024)) / 4
		a, _ := c.Noise3(x, y, z)
		b, _ := c.Noise3(x+256, y+512, z+256)
		if a != b {
			t.Fatalf("noise not 256-periodic at (%f,%f,%f): %f vs %f", x, y, z, a, b)
		}
		if a < -1.1 || a > 1.1 {
			t.Fatalf("noise out of range at (%f,%f,%f): %f", x, y, z, a)
		}
	}
}

func TestClassicNoiseContinuousAcrossCells(t *testing.T) {
	c := NewClassic(nil)
	for _, x := range []float64{1, 5, 42} {
		below, _ := c.Noise3(x-1e-9, 0.3, 0.7)
		at, _ := c.Noise3(x, 0.3, 0.7)
		if math.Abs(below-at) > 1e-6 {
			t.Fatalf("discontinuity at x=%f: %f vs %f", x, below, at)
		}
	}
}

func TestGridRequiresGenerate(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(1, 1)))
	if _, err := g.Noise3(0, 0, 0); !errors.Is(err, ErrUninitializedGrid) {
		t.Fatalf("expected ErrUninitializedGrid, got %v", err)
	}
	if err := g.Generate(0, 2, 2); !errors.Is(err, ErrInvalidGridSize) {
		t.Fatalf("expected ErrInvalidGridSize, got %v", err)
	}
	if _, err := g.Noise3(0, 0, 0); !errors.Is(err, ErrUninitializedGrid) {
		t.Fatalf("failed Generate must not initialise the grid, got %v", err)
	}
}

func TestGridGradientsAreUnitVectors(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(9, 9)))
	if err := g.Generate(4, 3, 2); err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, v := range g.gradients {
		if n := r3.Norm(v); math.Abs(n-1) > 1e-12 {
			t.Fatalf("gradient %v has norm %f", v, n)
		}
		if v.X < 0 || v.Y < 0 || v.Z < 0 {
			t.Fatalf("gradient %v has a negative component", v)
		}
	}
}

func TestGridSharesCornersAcrossFaces(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(42, 24)))
	const sx, sy, sz = 4, 3, 5
	if err := g.Generate(sx, sy, sz); err != nil {
		t.Fatalf("generate: %v", err)
	}

	relations := []struct {
		name           string
		dx, dy, dz     int
		mine, neighbor [4]int
	}{
		{name: "-x", dx: -1, mine: [4]int{0, 1, 2, 3}, neighbor: [4]int{4, 5, 6, 7}},
		{name: "-y", dy: -1, mine: [4]int{0, 2, 4, 6}, neighbor: [4]int{1, 3, 5, 7}},
		{name: "-z", dz: -1, mine: [4]int{0, 1, 4, 5}, neighbor: [4]int{2, 3, 6, 7}},
	}

	for z := 0; z < sz; z++ {
		for y := 0; y < sy; y++ {
			for x := 0; x < sx; x++ {
				cell, err := g.Gradients(x, y, z)
				if err != nil {
					t.Fatalf("gradients (%d,%d,%d): %v", x, y, z, err)
				}
				for _, rel := range relations {
					nx, ny, nz := x+rel.dx, y+rel.dy, z+rel.dz
					if nx < 0 || ny < 0 || nz < 0 {
						continue
					}
					neighbor, err := g.Gradients(nx, ny, nz)
					if err != nil {
						t.Fatalf("gradients (%d,%d,%d): %v", nx, ny, nz, err)
					}
					for i := range rel.mine {
						if cell[rel.mine[i]] != neighbor[rel.neighbor[i]] {
							t.Fatalf("cell (%d,%d,%d) corner %d differs from %s neighbour corner %d",
								x, y, z, rel.mine[i], rel.name, rel.neighbor[i])
						}
					}
				}
			}
		}
	}

	if want := (sx + 1) * (sy + 1) * (sz + 1); len(g.gradients) != want {
		t.Fatalf("expected %d distinct lattice gradients, got %d", want, len(g.gradients))
	}
}

func TestGridNoiseSamplesCellCentre(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(5, 6)))
	if err := g.Generate(3, 3, 1); err != nil {
		t.Fatalf("generate: %v", err)
	}

	corners, _ := g.Gradients(1, 2, 0)
	want := 0.0
	for _, c := range corners {
		want += r3.Dot(c, sampleOffset)
	}
	want /= 8

	for _, p := range [][3]float64{{1, 2, 0}, {1.75, 2.2, 0.9}, {4, 5, 3}, {7.5, 8, 0}} {
		got, err := g.Noise3(p[0], p[1], p[2])
		if err != nil {
			t.Fatalf("noise %v: %v", p, err)
		}
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("noise %v = %f, want %f", p, got, want)
		}
	}
}

func TestGridNoiseRejectsInvalidCoordinates(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(5, 6)))
	if err := g.Generate(2, 2, 2); err != nil {
		t.Fatalf("generate: %v", err)
	}
	for _, p := range [][3]float64{{-1, 0, 0}, {0, math.NaN(), 0}, {0, 0, math.Inf(1)}} {
		if _, err := g.Noise3(p[0], p[1], p[2]); !errors.Is(err, ErrCoordinateOutOfRange) {
			t.Fatalf("noise %v: expected ErrCoordinateOutOfRange, got %v", p, err)
		}
	}
}

func TestGridGenerateIsDeterministicPerSeed(t *testing.T) {
	a := NewGrid(rand.New(rand.NewPCG(77, 1)))
	b := NewGrid(rand.New(rand.NewPCG(77, 1)))
	if err := a.Generate(3, 2, 2); err != nil {
		t.Fatal(err)
	}
	if err := b.Generate(3, 2, 2); err != nil {
		t.Fatal(err)
	}
	for i := range a.gradients {
		if a.gradients[i] != b.gradients[i] {
			t.Fatalf("gradient %d differs between identically seeded grids", i)
		}
	}
}

type recordingSource struct {
	calls [][3]float64
}

func (s *recordingSource) Noise3(x, y, z float64) (float64, error) {
	s.calls = append(s.calls, [3]float64{x, y, z})
	return 1, nil
}

func TestOctavesSummation(t *testing.T) {
	tests := []struct {
		sum  Summation
		want float64
	}{
		{sum: SumPlain, want: 4},
		{sum: SumDamped, want: 1 + 1.0/2 + 1.0/3 + 1.0/4},
	}
	for _, tt := range tests {
		t.Run(string(tt.sum), func(t *testing.T) {
			src := &recordingSource{}
			got, err := Octaves(src, 4, 0.5, 1, 2, tt.sum)
			if err != nil {
				t.Fatalf("octaves: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("got %f want %f", got, tt.want)
			}
			last := src.calls[len(src.calls)-1]
			if last != [3]float64{4, 8, 16} {
				t.Fatalf("last octave sampled at %v, want [4 8 16]", last)
			}
		})
	}
}

func TestOctavesPropagatesErrors(t *testing.T) {
	g := NewGrid(rand.New(rand.NewPCG(1, 1)))
	if _, err := Octaves(g, 2, 0, 0, 0, SumPlain); !errors.Is(err, ErrUninitializedGrid) {
		t.Fatalf("expected wrapped ErrUninitializedGrid, got %v", err)
	}
}

func TestParseKindAndSummation(t *testing.T) {
	if k, err := ParseKind("grid"); err != nil || k != KindGrid {
		t.Fatalf("ParseKind(grid) = %q, %v", k, err)
	}
	if _, err := ParseKind("simplex"); err == nil {
		t.Fatalf("expected unknown kind error")
	}
	if s, err := ParseSummation("damped"); err != nil || s != SumDamped {
		t.Fatalf("ParseSummation(damped) = %q, %v", s, err)
	}
}
