package imaging

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Kernel is an odd-sized convolution window addressed by offsets from its
// centre.
type Kernel struct {
	weights *mat.Dense
	halfX   int
	halfY   int
}

// NewKernel wraps weights (rows = y) as a kernel. Both dimensions must be odd.
func NewKernel(weights mat.Matrix) (*Kernel, error) {
	rows, cols := weights.Dims()
	if !isOdd(rows) || !isOdd(cols) {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidKernelSize, cols, rows)
	}
	return &Kernel{
		weights: mat.DenseCopyOf(weights),
		halfX:   cols / 2,
		halfY:   rows / 2,
	}, nil
}

// GaussianKernel builds a normalized isotropic Gaussian window.
func GaussianKernel(sizeX, sizeY int, sigma float64) (*Kernel, error) {
	if !isOdd(sizeX) || !isOdd(sizeY) {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidKernelSize, sizeX, sizeY)
	}
	if !(sigma > 0) || math.IsInf(sigma, 0) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidSigma, sigma)
	}

	k := &Kernel{
		weights: mat.NewDense(sizeY, sizeX, nil),
		halfX:   sizeX / 2,
		halfY:   sizeY / 2,
	}
	sigmaSquare := sigma * sigma
	scale := 1 / (2 * math.Pi * sigmaSquare)
	for dy := -k.halfY; dy <= k.halfY; dy++ {
		for dx := -k.halfX; dx <= k.halfX; dx++ {
			value := scale * math.Exp(-float64(dx*dx+dy*dy)/(2*sigmaSquare))
			k.weights.Set(dy+k.halfY, dx+k.halfX, value)
		}
	}
	k.Normalize()
	return k, nil
}

// Size returns the window width and height.
func (k *Kernel) Size() (int, int) {
	return 2*k.halfX + 1, 2*k.halfY + 1
}

// At returns the weight at offset (dy, dx) from the centre.
func (k *Kernel) At(dy, dx int) float64 {
	return k.weights.At(dy+k.halfY, dx+k.halfX)
}

func (k *Kernel) Sum() float64 {
	return mat.Sum(k.weights)
}

// Normalize rescales the weights to sum to one. A zero-sum kernel is left as is.
func (k *Kernel) Normalize() {
	sum := k.Sum()
	if sum == 0 {
		return
	}
	k.weights.Scale(1/sum, k.weights)
}

func isOdd(n int) bool {
	return n > 0 && n%2 == 1
}
