package pipeline

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-station-etl/internal/adapter/noaa"
	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
	"github.com/couchcryptid/climate-station-etl/internal/table"
)

// Normals is the 1991-2020 daily climate normals pipeline. It reuses the
// GHCN-D station manifest: run the ghcnd download step first to generate it.
// Most stations in the region have no normals product, so missing files are
// tallied rather than treated as errors.
type Normals struct {
	deps   Deps
	client *noaa.Client
}

// NewNormals creates the daily normals pipeline.
func NewNormals(deps Deps) *Normals {
	return &Normals{
		deps:   deps,
		client: noaa.NewClient(deps.Config.Normals.FetchTimeout, deps.Logger),
	}
}

// Download attempts one normals CSV per manifest station. 404 is the common
// case and is not logged as an error.
func (p *Normals) Download(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadStations(cfg.ManifestPath(config.DatasetGHCND))
	if err != nil {
		p.deps.Logger.Error("GHCN-D station list not found, run the ghcnd download step first to generate it", "error", err)
		return nil
	}

	tasks := make([]fetchTask, 0, len(stations))
	for _, s := range stations {
		tasks = append(tasks, fetchTask{
			URL:   cfg.Normals.DataBaseURL + s.ID + ".csv",
			Dest:  filepath.Join(cfg.RawDir(config.DatasetNormals), s.ID+".csv"),
			Label: s.ID,
		})
	}

	p.deps.Logger.Info("downloading daily normals", "dataset", "normals", "stations", len(stations))
	t := runDownloads(ctx, p.deps, p.client, datasetMeta{
		name:      config.DatasetNormals,
		errPrefix: "Normals Download",
		benign404: true,
		logErrors: false,
	}, tasks)
	t.log(p.deps.Logger, "normals download complete")
	if len(tasks) > 0 && t.notFound.Load() == int64(len(tasks)) {
		p.deps.Logger.Info("no stations have a normals product", "dataset", "normals")
	}
	return nil
}

// normalsColumns maps raw normals elements to their output column and
// conversion. Temperatures are published in tenths of degrees Fahrenheit,
// precipitation in hundredths of inches.
var normalsColumns = map[string]struct {
	out     string
	convert func(float64) float64
}{
	"dly-tmax-normal": {"tmax_c_normal", func(v float64) float64 { return domain.FahrenheitToCelsius(domain.TenthsToUnits(v)) }},
	"dly-tmin-normal": {"tmin_c_normal", func(v float64) float64 { return domain.FahrenheitToCelsius(domain.TenthsToUnits(v)) }},
	"dly-prcp-normal": {"prcp_mm_normal", func(v float64) float64 { return domain.InchesToMillimeters(v / 100) }},
}

// Process pivots the long-form (date, element, value) normals records into
// one wide CSV per station.
func (p *Normals) Process(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadStations(cfg.ManifestPath(config.DatasetGHCND))
	if err != nil {
		p.deps.Logger.Error("GHCN-D station list not found, run the ghcnd download step first", "error", err)
		return nil
	}
	byID := manifest.ByID(stations)

	files, err := filepath.Glob(filepath.Join(cfg.RawDir(config.DatasetNormals), "*.csv"))
	if err != nil {
		return fmt.Errorf("list raw files: %w", err)
	}
	if len(files) == 0 {
		p.deps.Logger.Warn("no raw data found, run the download step first", "dataset", "normals")
		return nil
	}

	p.deps.Logger.Info("processing raw files", "dataset", "normals", "files", len(files))
	runProcessing(ctx, p.deps, datasetMeta{
		name:      config.DatasetNormals,
		errPrefix: "Normals Process",
		logErrors: true,
	}, files, func(path string) (int, error) {
		return p.processFile(path, byID)
	})
	return nil
}

func (p *Normals) processFile(path string, stations map[string]domain.Station) (int, error) {
	cfg := p.deps.Config

	required := make(map[string]bool, len(cfg.Normals.RequiredElements))
	for _, e := range cfg.Normals.RequiredElements {
		required[strings.ToLower(e)] = true
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return 0, nil
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateIdx, okDate := col["date"]
	elemIdx, okElem := col["element"]
	valIdx, okVal := col["value"]
	if !okDate || !okElem || !okVal {
		return 0, nil
	}

	tbl := table.New("month_day")
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		if dateIdx >= len(record) || elemIdx >= len(record) || valIdx >= len(record) {
			continue
		}

		element := strings.ToLower(strings.TrimSpace(record[elemIdx]))
		if !required[element] {
			continue
		}
		c, ok := normalsColumns[element]
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(record[valIdx]), 64)
		if err != nil {
			return 0, fmt.Errorf("bad value %q: %w", record[valIdx], err)
		}
		tbl.Set(strings.TrimSpace(record[dateIdx]), c.out, c.convert(v))
	}
	if tbl.Empty() {
		return 0, nil
	}

	id := strings.TrimSuffix(filepath.Base(path), ".csv")
	station, ok := stations[id]
	if !ok {
		return 0, fmt.Errorf("could not find metadata for station %s", id)
	}

	out := filepath.Join(cfg.ProcessedDir(config.DatasetNormals), station.CountryCode,
		id+"_normals_1991-2020.csv")
	if err := tbl.WriteFile(out); err != nil {
		return 0, err
	}
	return tbl.Len(), nil
}
