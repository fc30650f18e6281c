package pipeline

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/errlog"
	"github.com/couchcryptid/climate-station-etl/internal/observability"
)

// testDeps builds pipeline dependencies rooted in a per-test temp dir.
func testDeps(t *testing.T) Deps {
	t.Helper()

	cfg := &config.Config{
		DataDir:         t.TempDir(),
		StartYear:       1981,
		EndYear:         2025,
		TargetCountries: []string{"ZA", "MZ"},
		StandardColumns: map[string]string{
			"TMAX": "tmax_c",
			"TMIN": "tmin_c",
			"PRCP": "prcp_mm",
			"WDSP": "wind_speed_ms",
		},
		DownloadConcurrency: 4,
		ProcessConcurrency:  2,
		GHCND: config.DatasetConfig{
			RequiredElements: []string{"TMAX", "TMIN", "PRCP"},
			FetchTimeout:     5 * time.Second,
		},
		GSOD: config.DatasetConfig{FetchTimeout: 5 * time.Second},
		ISD:  config.DatasetConfig{FetchTimeout: 5 * time.Second},
		Normals: config.DatasetConfig{
			RequiredElements: []string{"dly-tmax-normal", "dly-tmin-normal", "dly-prcp-normal"},
			FetchTimeout:     5 * time.Second,
		},
	}

	return Deps{
		Config:  cfg,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics: observability.NewMetricsForTesting(),
		Errors:  errlog.New(cfg.ErrorLogPath()),
	}
}

func TestForDataset(t *testing.T) {
	deps := testDeps(t)

	for _, name := range Datasets() {
		p, err := ForDataset(name, deps)
		require.NoError(t, err, name)
		assert.NotNil(t, p, name)
	}

	_, err := ForDataset("bogus", deps)
	assert.ErrorContains(t, err, "unknown dataset")
}
