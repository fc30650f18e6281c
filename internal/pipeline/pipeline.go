// Package pipeline implements the four dataset pipelines (GHCN-D, GSOD,
// ISD hourly, Normals), each a download/process pair over independent,
// idempotent tasks fanned out on a bounded worker pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/climate-station-etl/internal/adapter/noaa"
	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/errlog"
	"github.com/couchcryptid/climate-station-etl/internal/observability"
)

// Pipeline is one dataset's download/process pair. Both steps run to
// completion, capturing per-task failures in the error log; they return an
// error only for faults that invalidate the whole step.
type Pipeline interface {
	Download(ctx context.Context) error
	Process(ctx context.Context) error
}

// Deps carries the collaborators shared by every pipeline.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *observability.Metrics
	Errors  *errlog.Log
}

// Datasets lists the valid --dataset values in dispatch order.
func Datasets() []string {
	return []string{"ghcnd", "gsod", "isd", "normals"}
}

// ForDataset returns the pipeline implementing the named dataset.
func ForDataset(name string, deps Deps) (Pipeline, error) {
	switch name {
	case "ghcnd":
		return NewGHCND(deps), nil
	case "gsod":
		return NewGSOD(deps), nil
	case "isd":
		return NewISD(deps), nil
	case "normals":
		return NewNormals(deps), nil
	default:
		return nil, fmt.Errorf("unknown dataset %q", name)
	}
}

// fetchTask is one download unit: a deterministic URL, a destination path
// whose existence marks completion, and a label for log messages.
type fetchTask struct {
	URL   string
	Dest  string
	Label string
}

// datasetMeta describes how a pipeline's downloads are tallied and reported.
type datasetMeta struct {
	name      string // metrics label and raw/processed directory name
	errPrefix string // prefix for error-log entries
	benign404 bool   // sparse datasets: 404 is expected, tallied but not logged
	logErrors bool   // append genuine failures to the error log
}

// tally accumulates download outcomes across workers.
type tally struct {
	fetched  atomic.Int64
	skipped  atomic.Int64
	notFound atomic.Int64
	failed   atomic.Int64
}

func (t *tally) record(o noaa.Outcome) {
	switch o {
	case noaa.OutcomeFetched:
		t.fetched.Add(1)
	case noaa.OutcomeSkipped:
		t.skipped.Add(1)
	case noaa.OutcomeNotFound:
		t.notFound.Add(1)
	default:
		t.failed.Add(1)
	}
}

// runPool fans n tasks out over a bounded worker pool. fn must capture its
// own failures; the pool itself only honors context cancellation.
func runPool(ctx context.Context, workers, n int, fn func(ctx context.Context, i int)) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			fn(ctx, i)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // workers never return errors
}

// runDownloads executes all fetch tasks with bounded concurrency, recording
// outcomes in metrics and the tally. Failures never abort the batch.
func runDownloads(ctx context.Context, d Deps, client *noaa.Client, meta datasetMeta, tasks []fetchTask) *tally {
	t := &tally{}
	runPool(ctx, d.Config.DownloadConcurrency, len(tasks), func(ctx context.Context, i int) {
		task := tasks[i]

		if err := os.MkdirAll(filepath.Dir(task.Dest), 0o755); err != nil {
			t.failed.Add(1)
			d.Metrics.Downloads.WithLabelValues(meta.name, "failed").Inc()
			d.logFailure(meta, fmt.Sprintf("%s: Error for %s. Details: %v", meta.errPrefix, task.Label, err))
			return
		}

		start := time.Now()
		outcome, err := client.Fetch(ctx, task.URL, task.Dest)
		if outcome != noaa.OutcomeSkipped {
			d.Metrics.DownloadDuration.WithLabelValues(meta.name).Observe(time.Since(start).Seconds())
		}

		t.record(outcome)
		d.Metrics.Downloads.WithLabelValues(meta.name, outcome.String()).Inc()

		switch {
		case err != nil:
			d.logFailure(meta, fmt.Sprintf("%s: Error for %s. Details: %v", meta.errPrefix, task.Label, err))
		case outcome == noaa.OutcomeNotFound && !meta.benign404:
			d.logFailure(meta, fmt.Sprintf("%s: Failed for %s (Status: 404)", meta.errPrefix, task.Label))
		}
	})
	return t
}

// runProcessing executes fn for every raw file with bounded concurrency.
// fn returns the number of output rows it wrote; an error means the file was
// skipped and is recorded with the filename.
func runProcessing(ctx context.Context, d Deps, meta datasetMeta, files []string, fn func(path string) (int, error)) {
	runPool(ctx, d.Config.ProcessConcurrency, len(files), func(_ context.Context, i int) {
		path := files[i]
		rows, err := fn(path)
		switch {
		case err != nil:
			d.Metrics.FilesProcessed.WithLabelValues(meta.name, "failed").Inc()
			d.logFailure(meta, fmt.Sprintf("%s: Failed for %s. Error: %v", meta.errPrefix, filepath.Base(path), err))
		case rows == 0:
			d.Metrics.FilesProcessed.WithLabelValues(meta.name, "empty").Inc()
		default:
			d.Metrics.FilesProcessed.WithLabelValues(meta.name, "processed").Inc()
			d.Metrics.RowsWritten.WithLabelValues(meta.name).Add(float64(rows))
		}
	})
}

// logFailure appends to the error log (when the dataset logs failures) and
// always surfaces the message on the structured logger.
func (d Deps) logFailure(meta datasetMeta, message string) {
	d.Logger.Warn(message)
	if !meta.logErrors {
		return
	}
	if err := d.Errors.Append(message); err != nil {
		d.Logger.Error("error log append failed", "error", err)
	}
}

func (t *tally) log(logger *slog.Logger, msg string) {
	logger.Info(msg,
		"fetched", t.fetched.Load(),
		"skipped", t.skipped.Load(),
		"not_found", t.notFound.Load(),
		"failed", t.failed.Load(),
	)
}
