package imaging

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Convolve applies k to img as a true convolution: the kernel is flipped
// relative to the neighbour offset. Neighbours outside the image contribute
// nothing and the remaining weights are not renormalized, so border samples
// come out darker than interior ones.
func Convolve(img mat.Matrix, k *Kernel) *mat.Dense {
	rows, cols := img.Dims()
	out := mat.NewDense(rows, cols, nil)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			out.Set(y, x, applyKernel(img, rows, cols, y, x, k))
		}
	}
	return out
}

func applyKernel(img mat.Matrix, rows, cols, y, x int, k *Kernel) float64 {
	value := 0.0
	for dy := -k.halfY; dy <= k.halfY; dy++ {
		if y+dy < 0 || y+dy >= rows {
			continue
		}
		for dx := -k.halfX; dx <= k.halfX; dx++ {
			if x+dx < 0 || x+dx >= cols {
				continue
			}
			value += img.At(y+dy, x+dx) * k.At(-dy, -dx)
		}
	}
	return value
}

// GaussianBlur convolves img with a radius x radius Gaussian of sigma radius/2.
func GaussianBlur(img mat.Matrix, radius int) (*mat.Dense, error) {
	kernel, err := GaussianKernel(radius, radius, float64(radius)/2)
	if err != nil {
		return nil, fmt.Errorf("gaussian blur radius %d: %w", radius, err)
	}
	return Convolve(img, kernel), nil
}
