package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-station-etl/internal/domain"
)

// Dataset directory names under raw/ and processed/. The ISD and Normals
// pipelines keep the historical directory names used by the data layout.
const (
	DatasetGHCND   = "ghcnd"
	DatasetGSOD    = "gsod"
	DatasetISD     = "isd_lite"
	DatasetNormals = "normals_daily"
)

// DatasetConfig holds per-dataset remote endpoints and parsing scope.
type DatasetConfig struct {
	InventoryURL     string
	DataBaseURL      string
	RequiredElements []string
	FetchTimeout     time.Duration
}

// Config holds all pipeline settings, populated from environment variables.
// It is immutable after Load and shared read-only by every worker.
type Config struct {
	DataDir string

	StartYear int
	EndYear   int

	// TargetCountries is the ISO-coded geographic scope. Every code must
	// resolve through the FIPS map so inventories keyed by either scheme
	// can be filtered.
	TargetCountries []string

	// StandardColumns maps source element names to output column names.
	StandardColumns map[string]string

	DownloadConcurrency int
	ProcessConcurrency  int

	MetricsAddr string
	LogLevel    string
	LogFormat   string

	GHCND   DatasetConfig
	GSOD    DatasetConfig
	ISD     DatasetConfig
	Normals DatasetConfig
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	startYear, err := envInt("START_YEAR", 1981)
	if err != nil {
		return nil, err
	}
	endYear, err := envInt("END_YEAR", 2025)
	if err != nil {
		return nil, err
	}
	downloadConcurrency, err := envInt("DOWNLOAD_CONCURRENCY", 10)
	if err != nil {
		return nil, err
	}
	processConcurrency, err := envInt("PROCESS_CONCURRENCY", runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:         envOrDefault("DATA_DIR", "data"),
		StartYear:       startYear,
		EndYear:         endYear,
		TargetCountries: splitList(envOrDefault("TARGET_COUNTRIES", "ZA,MI,MZ,ZI,AO,CG,TZ,WA")),
		StandardColumns: map[string]string{
			"TMAX": "tmax_c",
			"TMIN": "tmin_c",
			"PRCP": "prcp_mm",
			"WDSP": "wind_speed_ms",
		},
		DownloadConcurrency: downloadConcurrency,
		ProcessConcurrency:  processConcurrency,
		MetricsAddr:         os.Getenv("METRICS_ADDR"),
		LogLevel:            envOrDefault("LOG_LEVEL", "info"),
		LogFormat:           envOrDefault("LOG_FORMAT", "text"),

		GHCND: DatasetConfig{
			InventoryURL:     envOrDefault("GHCND_INVENTORY_URL", "https://www.ncei.noaa.gov/pub/data/ghcn/daily/ghcnd-stations.txt"),
			DataBaseURL:      envOrDefault("GHCND_DATA_URL", "https://www.ncei.noaa.gov/pub/data/ghcn/daily/all/"),
			RequiredElements: []string{"TMAX", "TMIN", "PRCP"},
			FetchTimeout:     60 * time.Second,
		},
		GSOD: DatasetConfig{
			InventoryURL: envOrDefault("ISD_HISTORY_URL", "https://www.ncei.noaa.gov/pub/data/noaa/isd-history.csv"),
			DataBaseURL:  envOrDefault("GSOD_DATA_URL", "https://www.ncei.noaa.gov/data/global-summary-of-the-day/access/"),
			FetchTimeout: 30 * time.Second,
		},
		ISD: DatasetConfig{
			InventoryURL: envOrDefault("ISD_HISTORY_URL", "https://www.ncei.noaa.gov/pub/data/noaa/isd-history.csv"),
			DataBaseURL:  envOrDefault("ISD_DATA_URL", "https://www.ncei.noaa.gov/data/global-hourly/access/"),
			FetchTimeout: 60 * time.Second,
		},
		Normals: DatasetConfig{
			DataBaseURL:      envOrDefault("NORMALS_DATA_URL", "https://www.ncei.noaa.gov/data/normals-daily/1991-2020/access/"),
			RequiredElements: []string{"dly-tmax-normal", "dly-tmin-normal", "dly-prcp-normal"},
			FetchTimeout:     60 * time.Second,
		},
	}

	if cfg.StartYear <= 0 {
		return nil, errors.New("START_YEAR must be positive")
	}
	if cfg.EndYear < cfg.StartYear {
		return nil, errors.New("END_YEAR must not precede START_YEAR")
	}
	if cfg.DownloadConcurrency <= 0 {
		return nil, errors.New("DOWNLOAD_CONCURRENCY must be positive")
	}
	if cfg.ProcessConcurrency <= 0 {
		return nil, errors.New("PROCESS_CONCURRENCY must be positive")
	}
	if len(cfg.TargetCountries) == 0 {
		return nil, errors.New("TARGET_COUNTRIES is required")
	}
	for _, iso := range cfg.TargetCountries {
		if _, ok := domain.FIPSForISO(iso); !ok {
			return nil, fmt.Errorf("TARGET_COUNTRIES: no FIPS mapping for %q", iso)
		}
	}

	return cfg, nil
}

// ManifestPath returns the persisted station-manifest path for a dataset.
// The ISD pipeline reuses the GSOD manifest and Normals reuses GHCN-D's,
// so only those two names ever exist on disk.
func (c *Config) ManifestPath(dataset string) string {
	return filepath.Join(c.DataDir, dataset+"_regional_stations.csv")
}

// RawDir returns the raw-download directory for a dataset.
func (c *Config) RawDir(dataset string) string {
	return filepath.Join(c.DataDir, "raw", dataset)
}

// ProcessedDir returns the processed-output directory for a dataset.
func (c *Config) ProcessedDir(dataset string) string {
	return filepath.Join(c.DataDir, "processed", dataset)
}

// ErrorLogPath returns the path of the append-only pipeline error log.
func (c *Config) ErrorLogPath() string {
	return filepath.Join(c.DataDir, "pipeline_errors.log")
}

// InScope reports whether a year falls inside the configured temporal scope.
func (c *Config) InScope(year int) bool {
	return year >= c.StartYear && year <= c.EndYear
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
