// Command spawnlisten stands in for the editor during development. It accepts
// spawn batches over a websocket, logs them and acknowledges each one.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"terraingen/internal/network"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:28090", "listen address")
	path := flag.String("path", "/spawn", "websocket endpoint path")
	rejectEvery := flag.Int("reject-every", 0, "reject every Nth batch (0 accepts all)")
	flag.Parse()

	logger := log.New(log.Writer(), "spawnlisten ", log.LstdFlags|log.Lmicroseconds)

	var units atomic.Int64
	srv := network.NewServer(func(ctx context.Context, batch network.SpawnBatch) network.BatchAck {
		if *rejectEvery > 0 && batch.Seq%uint64(*rejectEvery) == 0 {
			logger.Printf("run %s batch %d rejected", batch.RunID, batch.Seq)
			return network.BatchAck{Message: "rejected by -reject-every"}
		}
		total := units.Add(int64(len(batch.Units)))
		logger.Printf("run %s batch %d: %d units (%d total)", batch.RunID, batch.Seq, len(batch.Units), total)
		return network.BatchAck{Accepted: true}
	}, logger)

	mux := http.NewServeMux()
	mux.Handle(*path, srv.Handler())
	httpSrv := &http.Server{Addr: *addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Printf("listening on ws://%s%s", *addr, *path)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("serve: %v", err)
	}
}
