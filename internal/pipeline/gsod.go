package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-station-etl/internal/adapter/noaa"
	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
	"github.com/couchcryptid/climate-station-etl/internal/table"
)

// GSOD is the Global Summary of the Day pipeline: one CSV per (station,
// year) in imperial units, converted to metric daily CSVs. Its station
// manifest is shared with the ISD hourly pipeline.
type GSOD struct {
	deps   Deps
	client *noaa.Client
}

// NewGSOD creates the GSOD pipeline.
func NewGSOD(deps Deps) *GSOD {
	return &GSOD{
		deps:   deps,
		client: noaa.NewClient(deps.Config.GSOD.FetchTimeout, deps.Logger),
	}
}

// Download builds the ISD station manifest and attempts one fetch per
// (station, year). The dataset is sparse: most station-years do not exist on
// the server and 404s are expected.
func (p *GSOD) Download(ctx context.Context) error {
	cfg := p.deps.Config
	stations := p.locateStations(ctx)
	if len(stations) == 0 {
		return nil
	}

	var tasks []fetchTask
	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		for _, s := range stations {
			fid := s.FileID()
			tasks = append(tasks, fetchTask{
				URL:   fmt.Sprintf("%s%d/%s.csv", cfg.GSOD.DataBaseURL, year, fid),
				Dest:  filepath.Join(cfg.RawDir(config.DatasetGSOD), strconv.Itoa(year), fid+".csv"),
				Label: fmt.Sprintf("%s/%d", fid, year),
			})
		}
	}

	p.deps.Logger.Info("downloading station data; most attempts 404, which is normal for this dataset",
		"dataset", "gsod", "stations", len(stations), "years", cfg.EndYear-cfg.StartYear+1)
	t := runDownloads(ctx, p.deps, p.client, datasetMeta{
		name:      config.DatasetGSOD,
		errPrefix: "GSOD Download",
		benign404: true,
		logErrors: true,
	}, tasks)
	t.log(p.deps.Logger, "gsod download complete")
	return nil
}

// locateStations fetches the ISD station history, filters it to target
// countries still active in scope, and persists the manifest. Failures are
// soft and yield an empty slice.
func (p *GSOD) locateStations(ctx context.Context) []domain.ISDStation {
	cfg := p.deps.Config
	meta := datasetMeta{name: config.DatasetGSOD, errPrefix: "GSOD", logErrors: true}

	body, err := p.client.Get(ctx, cfg.GSOD.InventoryURL)
	if err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GSOD: Failed to download or process station list. Error: %v", err))
		return nil
	}
	stations, err := manifest.ParseISDHistory(bytes.NewReader(body), cfg.TargetCountries, cfg.StartYear)
	if err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GSOD: Failed to download or process station list. Error: %v", err))
		return nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GSOD: Failed to create data dir. Error: %v", err))
		return nil
	}
	if err := manifest.WriteISDStations(cfg.ManifestPath(config.DatasetGSOD), stations); err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GSOD: Failed to persist station list. Error: %v", err))
		return nil
	}

	p.deps.Logger.Info("station manifest written",
		"dataset", "gsod",
		"stations", len(stations),
		"path", cfg.ManifestPath(config.DatasetGSOD),
	)
	return stations
}

// Process converts every raw GSOD CSV to metric units and writes one output
// file per station-year. Station metadata is preloaded once and shared
// read-only by all workers.
func (p *GSOD) Process(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadISDStations(cfg.ManifestPath(config.DatasetGSOD))
	if err != nil {
		p.deps.Logger.Error("station list not found, run the download step first", "error", err)
		return nil
	}
	byFileID := manifest.ByFileID(stations)

	files, err := filepath.Glob(filepath.Join(cfg.RawDir(config.DatasetGSOD), "*", "*.csv"))
	if err != nil {
		return fmt.Errorf("list raw files: %w", err)
	}
	if len(files) == 0 {
		p.deps.Logger.Warn("no raw data found, run the download step first", "dataset", "gsod")
		return nil
	}

	p.deps.Logger.Info("processing raw files", "dataset", "gsod", "files", len(files))
	runProcessing(ctx, p.deps, datasetMeta{
		name:      config.DatasetGSOD,
		errPrefix: "GSOD Process",
		logErrors: true,
	}, files, func(path string) (int, error) {
		return p.processFile(path, byFileID)
	})
	return nil
}

// gsodColumns maps raw GSOD columns to their output column and unit
// conversion.
var gsodColumns = []struct {
	raw     string
	out     string
	convert func(float64) float64
}{
	{"MAX", "tmax_c", domain.FahrenheitToCelsius},
	{"MIN", "tmin_c", domain.FahrenheitToCelsius},
	{"PRCP", "prcp_mm", domain.InchesToMillimeters},
	{"WDSP", "wind_speed_ms", domain.KnotsToMetersPerSecond},
}

func (p *GSOD) processFile(path string, stations map[string]domain.ISDStation) (int, error) {
	cfg := p.deps.Config

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, nil // empty file, nothing to do
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	dateIdx, ok := col["DATE"]
	if !ok {
		return 0, nil
	}

	var stationField string
	perYear := make(map[int]*table.Table)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		if stationField == "" {
			if idx, ok := col["STATION"]; ok && idx < len(record) {
				stationField = strings.TrimSpace(record[idx])
			}
		}

		if dateIdx >= len(record) {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return 0, fmt.Errorf("bad date %q: %w", record[dateIdx], err)
		}
		if !cfg.InScope(date.Year()) {
			continue
		}

		for _, c := range gsodColumns {
			idx, ok := col[c.raw]
			if !ok || idx >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil || domain.IsGSODMissing(v) {
				continue
			}

			tbl, ok := perYear[date.Year()]
			if !ok {
				tbl = table.New("date")
				perYear[date.Year()] = tbl
			}
			tbl.Set(date.Format("2006-01-02"), c.out, c.convert(v))
		}
	}
	if len(perYear) == 0 {
		return 0, nil
	}

	// The raw file's STATION value is the hyphen-less filename ID; resolve
	// it back through the manifest to recover the display ID and country.
	if stationField == "" {
		stationField = strings.TrimSuffix(filepath.Base(path), ".csv")
	}
	station, ok := stations[stationField]
	if !ok {
		return 0, fmt.Errorf("could not find metadata for station %s", stationField)
	}

	rows := 0
	for year, tbl := range perYear {
		out := filepath.Join(cfg.ProcessedDir(config.DatasetGSOD), station.CountryCode,
			fmt.Sprintf("%s_%d.csv", station.DisplayID(), year))
		if err := tbl.WriteFile(out); err != nil {
			return rows, err
		}
		rows += tbl.Len()
	}
	return rows, nil
}
