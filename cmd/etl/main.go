// Command etl runs one step of one dataset pipeline:
//
//	go run ./cmd/etl -dataset ghcnd -step download
//	go run ./cmd/etl -dataset ghcnd -step process
//
// Datasets: ghcnd, gsod, isd, normals. Steps: download, process. Both steps
// are safe to rerun: downloads skip files already on disk and processing
// fully rewrites its outputs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpadapter "github.com/couchcryptid/climate-station-etl/internal/adapter/http"
	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/errlog"
	"github.com/couchcryptid/climate-station-etl/internal/observability"
	"github.com/couchcryptid/climate-station-etl/internal/pipeline"
)

func main() {
	dataset := flag.String("dataset", "", fmt.Sprintf("dataset to run (%s)", strings.Join(pipeline.Datasets(), ", ")))
	step := flag.String("step", "", "step to run (download, process)")
	flag.Parse()

	if *dataset == "" || *step == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	deps := pipeline.Deps{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Errors:  errlog.New(cfg.ErrorLogPath()),
	}

	p, err := pipeline.ForDataset(*dataset, deps)
	if err != nil {
		logger.Error("unknown dataset", "dataset", *dataset, "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.MetricsAddr != "" {
		srv = httpadapter.NewServer(cfg.MetricsAddr, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server error", "error", err)
			}
		}()
	}

	metrics.PipelineRunning.Set(1)
	start := time.Now()
	logger.Info("step starting", "dataset", *dataset, "step", *step)

	switch *step {
	case "download":
		err = p.Download(ctx)
	case "process":
		err = p.Process(ctx)
	default:
		logger.Error("unknown step, want download or process", "step", *step)
		os.Exit(1)
	}
	metrics.PipelineRunning.Set(0)

	if err != nil {
		logger.Error("step failed", "dataset", *dataset, "step", *step, "error", err)
		os.Exit(1)
	}
	logger.Info("step complete", "dataset", *dataset, "step", *step, "duration", time.Since(start))

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
}
