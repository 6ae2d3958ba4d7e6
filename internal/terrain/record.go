package terrain

import (
	"fmt"
	"iter"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"terraingen/internal/density"
)

// VoxelRecord describes one occupied voxel. Position is the voxel coordinate
// shifted so the block is centred on the origin.
type VoxelRecord struct {
	ID       uuid.UUID
	Name     string
	Coord    density.Coord
	Position density.Coord
	Material string
}

func newRecord(n int, coord, position density.Coord, material string) VoxelRecord {
	return VoxelRecord{
		ID:       uuid.New(),
		Name:     fmt.Sprintf("cube_%d", n),
		Coord:    coord,
		Position: position,
		Material: material,
	}
}

// Result is the output of one generation run.
type Result struct {
	Extents density.Extents
	Heights *mat.Dense // nil in procedural mode
	records []VoxelRecord
}

// Records yields occupied voxels in z, y, x order.
func (r *Result) Records() iter.Seq[VoxelRecord] {
	return func(yield func(VoxelRecord) bool) {
		for _, rec := range r.records {
			if !yield(rec) {
				return
			}
		}
	}
}

func (r *Result) Count() int {
	return len(r.records)
}

// MaterialBands maps a height fraction to a material name. Names has one more
// entry than Thresholds, which ascend.
type MaterialBands struct {
	Thresholds []float64
	Names      []string
}

// Classify returns the first band whose threshold exceeds zf, or the last band.
func (b MaterialBands) Classify(zf float64) string {
	for i, t := range b.Thresholds {
		if zf < t && i < len(b.Names) {
			return b.Names[i]
		}
	}
	if len(b.Names) == 0 {
		return ""
	}
	return b.Names[len(b.Names)-1]
}
