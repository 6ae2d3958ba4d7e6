package density

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"terraingen/internal/imaging"
	"terraingen/internal/noise"
)

// HeightMapParams controls the filter chain applied to raw height samples.
type HeightMapParams struct {
	StretchMin float64
	StretchMax float64
	BlurRadius int
}

// DefaultHeightMapParams stretches to [0, 0.9] around a radius 5 blur.
func DefaultHeightMapParams() HeightMapParams {
	return HeightMapParams{StretchMin: 0, StretchMax: 0.9, BlurRadius: 5}
}

// SampleHeights evaluates src once per (x, y) on the z=0 plane.
func SampleHeights(src noise.Source, sizeX, sizeY int) (*mat.Dense, error) {
	if sizeX <= 0 || sizeY <= 0 {
		return nil, fmt.Errorf("%w: height map %dx%d", ErrInvalidExtents, sizeX, sizeY)
	}
	heights := mat.NewDense(sizeY, sizeX, nil)
	for y := 0; y < sizeY; y++ {
		for x := 0; x < sizeX; x++ {
			v, err := src.Noise3(float64(x), float64(y), 0)
			if err != nil {
				return nil, fmt.Errorf("sample height (%d,%d): %w", x, y, err)
			}
			heights.Set(y, x, v)
		}
	}
	return heights, nil
}

// BuildHeightMap samples src and runs stretch, blur, stretch. Nothing is
// returned unless every stage succeeds.
func BuildHeightMap(src noise.Source, sizeX, sizeY int, params HeightMapParams) (*mat.Dense, error) {
	raw, err := SampleHeights(src, sizeX, sizeY)
	if err != nil {
		return nil, err
	}
	return FilterHeights(raw, params)
}

// FilterHeights applies the stretch, blur, stretch chain to raw samples.
func FilterHeights(raw mat.Matrix, params HeightMapParams) (*mat.Dense, error) {
	stretched, err := imaging.RangeStretch(raw, params.StretchMin, params.StretchMax)
	if err != nil {
		return nil, fmt.Errorf("stretch raw heights: %w", err)
	}
	blurred := stretched
	if params.BlurRadius > 0 {
		blurred, err = imaging.GaussianBlur(stretched, params.BlurRadius)
		if err != nil {
			return nil, err
		}
	}
	out, err := imaging.RangeStretch(blurred, params.StretchMin, params.StretchMax)
	if err != nil {
		return nil, fmt.Errorf("stretch blurred heights: %w", err)
	}
	return out, nil
}
