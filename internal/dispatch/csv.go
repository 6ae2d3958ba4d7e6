package dispatch

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	"github.com/klauspost/compress/zstd"

	"terraingen/internal/terrain"
)

// VoxelRow is the flat CSV form of a VoxelRecord.
type VoxelRow struct {
	Batch    uint64 `csv:"batch"`
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	X        int    `csv:"x"`
	Y        int    `csv:"y"`
	Z        int    `csv:"z"`
	PosX     int    `csv:"pos_x"`
	PosY     int    `csv:"pos_y"`
	PosZ     int    `csv:"pos_z"`
	Material string `csv:"material"`
}

func rowsFor(batch Batch) []VoxelRow {
	rows := make([]VoxelRow, len(batch.Records))
	for i, rec := range batch.Records {
		rows[i] = toRow(batch.Seq, rec)
	}
	return rows
}

func toRow(seq uint64, rec terrain.VoxelRecord) VoxelRow {
	return VoxelRow{
		Batch:    seq,
		ID:       rec.ID.String(),
		Name:     rec.Name,
		X:        rec.Coord.X,
		Y:        rec.Coord.Y,
		Z:        rec.Coord.Z,
		PosX:     rec.Position.X,
		PosY:     rec.Position.Y,
		PosZ:     rec.Position.Z,
		Material: rec.Material,
	}
}

// CSVSink appends batches to a CSV file, optionally zstd compressed. The
// header is written with the first batch only.
type CSVSink struct {
	mu            sync.Mutex
	f             *os.File
	enc           *zstd.Encoder
	w             *bufio.Writer
	headerWritten bool
}

func NewCSVSink(path string, compress bool) (*CSVSink, error) {
	if path == "" {
		return nil, fmt.Errorf("empty csv path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create csv: %w", err)
	}

	s := &CSVSink{f: f}
	var out io.Writer = f
	if compress {
		enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		s.enc = enc
		out = enc
	}
	s.w = bufio.NewWriterSize(out, 64*1024)
	return s, nil
}

func (s *CSVSink) SendBatch(ctx context.Context, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w == nil {
		return fmt.Errorf("csv sink closed")
	}

	rows := rowsFor(batch)
	if !s.headerWritten {
		if err := gocsv.Marshal(rows, s.w); err != nil {
			return fmt.Errorf("writing voxels: %w", err)
		}
		s.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(rows, s.w); err != nil {
			return fmt.Errorf("writing voxels: %w", err)
		}
	}
	return s.w.Flush()
}

// Close flushes buffered rows, finishes the zstd frame and closes the file.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.w != nil {
		firstErr = s.w.Flush()
		s.w = nil
	}
	if s.enc != nil {
		if err := s.enc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.enc = nil
	}
	if s.f != nil {
		if err := s.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.f = nil
	}
	return firstErr
}
