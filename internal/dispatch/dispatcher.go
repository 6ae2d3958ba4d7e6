// Package dispatch delivers generated voxels to an external consumer in
// ordered, throttled batches.
package dispatch

import (
	"context"
	"fmt"
	"iter"
	"log"
	"time"

	"terraingen/internal/terrain"
)

const (
	DefaultBatchSize = 100
	DefaultDelay     = 100 * time.Millisecond
)

// Batch is one delivery unit. Seq starts at 1 and increases by one per batch.
type Batch struct {
	Seq     uint64
	Records []terrain.VoxelRecord
}

// Sink accepts batches. SendBatch must not return until the batch has been
// accepted; the dispatcher never sends the next batch before that.
type Sink interface {
	SendBatch(ctx context.Context, batch Batch) error
}

// Stats summarises a finished dispatch.
type Stats struct {
	Batches int
	Records int
}

type Dispatcher struct {
	sink      Sink
	batchSize int
	delay     time.Duration
	logger    *log.Logger
}

func NewDispatcher(sink Sink, batchSize int, delay time.Duration, logger *log.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if delay < 0 {
		delay = 0
	}
	if logger == nil {
		logger = log.New(log.Writer(), "dispatch ", log.LstdFlags)
	}
	return &Dispatcher{sink: sink, batchSize: batchSize, delay: delay, logger: logger}
}

// Dispatch pulls records from the sequence and sends them in batches,
// pausing before each one. At most one batch is buffered at a time. It stops
// at the first sink error and reports how much was delivered up to that point.
func (d *Dispatcher) Dispatch(ctx context.Context, records iter.Seq[terrain.VoxelRecord]) (Stats, error) {
	var stats Stats
	var seq uint64
	send := func(recs []terrain.VoxelRecord) error {
		if err := d.wait(ctx); err != nil {
			return err
		}
		seq++
		batch := Batch{Seq: seq, Records: recs}
		if err := d.sink.SendBatch(ctx, batch); err != nil {
			return fmt.Errorf("send batch %d: %w", batch.Seq, err)
		}
		stats.Batches++
		stats.Records += len(recs)
		d.logger.Printf("batch %d delivered (%d voxels so far)", batch.Seq, stats.Records)
		return nil
	}

	pending := make([]terrain.VoxelRecord, 0, d.batchSize)
	for rec := range records {
		pending = append(pending, rec)
		if len(pending) < d.batchSize {
			continue
		}
		if err := send(pending); err != nil {
			return stats, err
		}
		// Sinks may keep the slice they were handed.
		pending = make([]terrain.VoxelRecord, 0, d.batchSize)
	}
	if len(pending) > 0 {
		if err := send(pending); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func (d *Dispatcher) wait(ctx context.Context) error {
	if d.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LogSink only logs batch sizes. It backs the "none" sink.
type LogSink struct {
	Logger *log.Logger
}

func (s LogSink) SendBatch(ctx context.Context, batch Batch) error {
	if s.Logger != nil {
		s.Logger.Printf("batch %d: %d voxels discarded", batch.Seq, len(batch.Records))
	}
	return ctx.Err()
}
