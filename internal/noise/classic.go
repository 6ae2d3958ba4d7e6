package noise

import "math"

// edgeGradients are the twelve cube edge midpoints.
var edgeGradients = [12][3]float64{
	{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
	{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
	{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
}

// Classic is improved Perlin noise over a 256-periodic lattice. It is kept as
// a reference implementation next to the cell-gradient Grid.
type Classic struct {
	perm *Permutation
}

// NewClassic creates a classic noise evaluator. A nil table selects the
// reference permutation.
func NewClassic(perm *Permutation) *Classic {
	if perm == nil {
		perm = NewPermutation()
	}
	return &Classic{perm: perm}
}

// Noise3 never fails; the error return satisfies Source.
func (c *Classic) Noise3(x, y, z float64) (float64, error) {
	fx := math.Floor(x)
	fy := math.Floor(y)
	fz := math.Floor(z)

	x -= fx
	y -= fy
	z -= fz

	X := int(fx) & 255
	Y := int(fy) & 255
	Z := int(fz) & 255

	var n [8]float64
	n[0] = dot(c.gradient(X, Y, Z), x, y, z)
	n[1] = dot(c.gradient(X+1, Y, Z), x-1, y, z)
	n[2] = dot(c.gradient(X, Y+1, Z), x, y-1, z)
	n[3] = dot(c.gradient(X+1, Y+1, Z), x-1, y-1, z)
	n[4] = dot(c.gradient(X, Y, Z+1), x, y, z-1)
	n[5] = dot(c.gradient(X+1, Y, Z+1), x-1, y, z-1)
	n[6] = dot(c.gradient(X, Y+1, Z+1), x, y-1, z-1)
	n[7] = dot(c.gradient(X+1, Y+1, Z+1), x-1, y-1, z-1)

	return trilinear(n, fade(x), fade(y), fade(z)), nil
}

func (c *Classic) gradient(x, y, z int) [3]float64 {
	p := c.perm
	return edgeGradients[int(p[x+int(p[y+int(p[z])])])%12]
}

func dot(g [3]float64, x, y, z float64) float64 {
	return g[0]*x + g[1]*y + g[2]*z
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func mix(a, b, t float64) float64 {
	return (1-t)*a + t*b
}

// trilinear blends corner contributions ordered 000,100,010,110,001,101,011,111
// (bit 0 = x, bit 1 = y, bit 2 = z) along x, then y, then z.
func trilinear(n [8]float64, u, v, w float64) float64 {
	nx00 := mix(n[0], n[1], u)
	nx01 := mix(n[4], n[5], u)
	nx10 := mix(n[2], n[3], u)
	nx11 := mix(n[6], n[7], u)

	nxy0 := mix(nx00, nx10, v)
	nxy1 := mix(nx01, nx11, v)

	return mix(nxy0, nxy1, w)
}
