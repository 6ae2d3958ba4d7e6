package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"terraingen/internal/config"
	"terraingen/internal/density"
	"terraingen/internal/dispatch"
	"terraingen/internal/imaging"
	"terraingen/internal/network"
	"terraingen/internal/terrain"
)

func main() {
	var cfgPath, defaultPath string
	flag.StringVar(&cfgPath, "config", "", "path to terrain configuration file")
	flag.StringVar(&defaultPath, "write-default", "", "write the default configuration to this path and exit")
	flag.Parse()

	if defaultPath != "" {
		if err := config.WriteDefault(defaultPath); err != nil {
			log.Fatalf("write default config: %v", err)
		}
		log.Printf("default configuration written to %s", defaultPath)
		return
	}

	if wrote, err := writeConfigFromEnv(cfgPath); err != nil {
		log.Fatalf("sync config: %v", err)
	} else if wrote {
		log.Printf("configuration written to %s from %s", cfgPath, configEnvVar)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if err := run(ctx, cfg, log.New(log.Writer(), "terraingen ", log.LstdFlags)); err != nil {
		log.Fatalf("terrain generation failed: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	gen, err := terrain.NewGenerator(cfg.Terrain, log.New(logger.Writer(), "terrain ", logger.Flags()))
	if err != nil {
		return err
	}

	extents := density.Extents{X: cfg.Extents.X, Y: cfg.Extents.Y, Z: cfg.Extents.Z}
	result, err := gen.Generate(ctx, extents)
	if err != nil {
		return err
	}
	logger.Printf("generated %d voxels in a %dx%dx%d block", result.Count(), extents.X, extents.Y, extents.Z)

	if cfg.Preview.Path != "" && result.Heights != nil {
		if err := imaging.SavePreview(result.Heights, cfg.Preview.Path); err != nil {
			return fmt.Errorf("save preview: %w", err)
		}
		logger.Printf("height map preview written to %s", cfg.Preview.Path)
	}

	sink, closeSink, err := openSink(ctx, cfg.Dispatch, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeSink(); err != nil {
			logger.Printf("close %s sink: %v", cfg.Dispatch.Sink, err)
		}
	}()

	d := dispatch.NewDispatcher(sink, cfg.Dispatch.BatchSize, cfg.Dispatch.Delay.Duration(), logger)
	stats, err := d.Dispatch(ctx, result.Records())
	if err != nil {
		return fmt.Errorf("dispatch after %d batches: %w", stats.Batches, err)
	}
	logger.Printf("dispatched %d voxels in %d batches", stats.Records, stats.Batches)
	return nil
}

func openSink(ctx context.Context, cfg config.DispatchConfig, logger *log.Logger) (dispatch.Sink, func() error, error) {
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	noop := func() error { return nil }

	switch cfg.Sink {
	case config.SinkCSV:
		sink, err := dispatch.NewCSVSink(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, nil, err
		}
		return sink, sink.Close, nil
	case config.SinkSQLite:
		sink, err := dispatch.OpenSQLite(cfg.Path, runID)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite sink: %w", err)
		}
		return sink, sink.Close, nil
	case config.SinkWebSocket:
		client, err := network.Dial(ctx, cfg.URL, runID, cfg.AckTimeout.Duration(), log.New(logger.Writer(), "network ", logger.Flags()))
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	default:
		return dispatch.LogSink{Logger: logger}, noop, nil
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			return
		}

		time.AfterFunc(10*time.Second, func() {
			log.Printf("forced shutdown after timeout")
			os.Exit(1)
		})
	}()

	return ctx, cancel
}
