package terrain

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"gonum.org/v1/gonum/mat"

	"terraingen/internal/config"
	"terraingen/internal/density"
	"terraingen/internal/noise"
)

var ErrInvalidExtents = errors.New("terrain: extents must be positive")

// Generator owns the mutable state of terrain generation: the random stream,
// the active gradient grid and the last height map. Generate replaces that
// state only when a run succeeds.
type Generator struct {
	cfg    config.TerrainConfig
	logger *log.Logger
	bands  MaterialBands

	// buildHeights turns the gradient grid into a filtered height map.
	buildHeights func(src noise.Source, sizeX, sizeY int, params density.HeightMapParams) (*mat.Dense, error)

	mu      sync.Mutex
	rng     *rand.Rand
	classic *noise.Classic
	grid    *noise.Grid
	heights *mat.Dense
	spawned int
}

func NewGenerator(cfg config.TerrainConfig, logger *log.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("terrain config: %w", err)
	}
	if logger == nil {
		logger = log.New(log.Writer(), "terrain ", log.LstdFlags)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	perm := noise.NewPermutation()
	if cfg.Noise.ShufflePermutation {
		perm = noise.ShuffledPermutation(rng)
	}

	return &Generator{
		cfg:     cfg,
		logger:  logger,
		bands:   MaterialBands{Thresholds: cfg.Materials.Thresholds, Names: cfg.Materials.Names},
		rng:     rng,
		classic: noise.NewClassic(perm),

		buildHeights: density.BuildHeightMap,
	}, nil
}

// HeightMap returns the height map of the last successful run, or nil.
func (g *Generator) HeightMap() *mat.Dense {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.heights
}

// Grid returns the gradient grid of the last successful run, or nil.
func (g *Generator) Grid() *noise.Grid {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.grid
}

// Generate builds a fresh gradient grid, derives the height map when the
// density mode needs one and evaluates every voxel of extents.
func (g *Generator) Generate(ctx context.Context, extents density.Extents) (*Result, error) {
	if !extents.Valid() {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidExtents, extents.X, extents.Y, extents.Z)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	mode := g.cfg.Density.Mode
	gridZ := extents.Z
	if mode == density.ModeHeightMap {
		gridZ = 1
	}
	grid := noise.NewGrid(g.rng)
	if err := grid.Generate(extents.X, extents.Y, gridZ); err != nil {
		return nil, fmt.Errorf("generate gradients: %w", err)
	}

	// noise.kind picks the procedural source; height maps always come from
	// the gradient grid.
	var src noise.Source = grid
	if g.cfg.Noise.Kind == noise.KindClassic {
		src = g.classic
	}

	var heights *mat.Dense
	if mode == density.ModeHeightMap {
		params := density.HeightMapParams{
			StretchMin: g.cfg.HeightMap.StretchMin,
			StretchMax: g.cfg.HeightMap.StretchMax,
			BlurRadius: g.cfg.HeightMap.BlurRadius,
		}
		var err error
		heights, err = g.buildHeights(grid, extents.X, extents.Y, params)
		if err != nil {
			return nil, fmt.Errorf("build height map: %w", err)
		}
	}

	field := &density.Field{
		Mode:      mode,
		Source:    src,
		Heights:   heights,
		Threshold: g.cfg.Density.Threshold,
		Octaves:   g.cfg.Density.Octaves,
		Summation: g.cfg.Density.Summation,
	}

	occupied, err := g.evaluate(ctx, field, extents)
	if err != nil {
		return nil, err
	}

	result := g.collect(occupied, extents, heights)

	g.grid = grid
	g.heights = heights
	g.spawned += len(result.records)
	return result, nil
}

// evaluate fills one occupancy flag per voxel. Each task owns a z layer, so
// tasks write disjoint ranges of the slice.
func (g *Generator) evaluate(ctx context.Context, field *density.Field, extents density.Extents) ([]bool, error) {
	occupied := make([]bool, extents.Volume())
	layer := extents.X * extents.Y

	progress := newProgressLog(g.logger, extents.Z)
	progress.start()

	pool := pond.NewPool(g.workerCount(extents.Z))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for z := 0; z < extents.Z; z++ {
		group.SubmitErr(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			base := z * layer
			for y := 0; y < extents.Y; y++ {
				for x := 0; x < extents.X; x++ {
					ok, err := field.Occupied(density.Coord{X: x, Y: y, Z: z}, extents)
					if err != nil {
						return fmt.Errorf("voxel (%d,%d,%d): %w", x, y, z, err)
					}
					occupied[base+y*extents.X+x] = ok
				}
			}
			progress.advance()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	progress.finish()
	return occupied, nil
}

func (g *Generator) collect(occupied []bool, extents density.Extents, heights *mat.Dense) *Result {
	result := &Result{Extents: extents, Heights: heights}
	half := density.Coord{X: extents.X / 2, Y: extents.Y / 2, Z: extents.Z / 2}
	next := g.spawned

	for z := 0; z < extents.Z; z++ {
		zf := float64(z) / float64(extents.Z)
		material := g.bands.Classify(zf)
		for y := 0; y < extents.Y; y++ {
			for x := 0; x < extents.X; x++ {
				if !occupied[(z*extents.Y+y)*extents.X+x] {
					continue
				}
				result.records = append(result.records, newRecord(
					next,
					density.Coord{X: x, Y: y, Z: z},
					density.Coord{X: x - half.X, Y: y - half.Y, Z: z - half.Z},
					material,
				))
				next++
			}
		}
	}
	return result
}

func (g *Generator) workerCount(layers int) int {
	if layers <= 0 {
		return 1
	}
	if g.cfg.Workers > 0 {
		return min(g.cfg.Workers, layers)
	}
	workers := runtime.GOMAXPROCS(0) * 2
	if workers <= 0 {
		workers = 1
	}
	return min(workers, layers)
}

// progressLog reports completion in 10% steps.
type progressLog struct {
	logger *log.Logger

	mu       sync.Mutex
	total    int
	done     int
	next     int
	complete bool
}

func newProgressLog(logger *log.Logger, total int) *progressLog {
	return &progressLog{logger: logger, total: total, next: 10}
}

func (p *progressLog) start() {
	p.logger.Printf("terrain generation progress: 0%%")
}

func (p *progressLog) advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.done++
	progress := p.done * 100 / p.total
	if progress < p.next {
		return
	}
	progress = min(progress, 100)
	p.logger.Printf("terrain generation progress: %d%%", progress)
	if progress >= 100 {
		p.complete = true
		p.next = 110
		return
	}
	p.next = (progress/10 + 1) * 10
}

func (p *progressLog) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.complete {
		p.logger.Printf("terrain generation progress: 100%%")
	}
}
