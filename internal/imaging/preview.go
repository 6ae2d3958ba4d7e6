package imaging

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

// Grayscale converts a height map with samples in [0,1] into an 8-bit image,
// one pixel per sample. Values outside the range are clamped.
func Grayscale(img mat.Matrix) *image.Gray {
	rows, cols := img.Dims()
	out := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			level := math.Floor(clamp(img.At(y, x), 0, 1) * 255)
			out.SetGray(x, y, color.Gray{Y: uint8(level)})
		}
	}
	return out
}

// SavePreview writes img as a grayscale PNG at path.
func SavePreview(img mat.Matrix, path string) error {
	if img == nil {
		return fmt.Errorf("height map is nil")
	}
	if err := ensurePreviewDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create preview directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create preview: %w", err)
	}
	defer file.Close()
	if err := png.Encode(file, Grayscale(img)); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

func clamp(value, min, max float64) float64 {
	if math.IsNaN(value) || value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

func ensurePreviewDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
