package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
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

// GHCND is the Global Historical Climatology Network - Daily pipeline:
// fixed-width .dly files, one per station, reshaped into per-year daily CSVs.
type GHCND struct {
	deps   Deps
	client *noaa.Client
}

// NewGHCND creates the GHCN-D pipeline.
func NewGHCND(deps Deps) *GHCND {
	return &GHCND{
		deps:   deps,
		client: noaa.NewClient(deps.Config.GHCND.FetchTimeout, deps.Logger),
	}
}

// Download builds the station manifest from the master inventory and fetches
// one .dly file per in-scope station.
func (p *GHCND) Download(ctx context.Context) error {
	cfg := p.deps.Config
	stations := p.locateStations(ctx)
	if len(stations) == 0 {
		return nil
	}

	tasks := make([]fetchTask, 0, len(stations))
	for _, s := range stations {
		tasks = append(tasks, fetchTask{
			URL:   cfg.GHCND.DataBaseURL + s.ID + ".dly",
			Dest:  filepath.Join(cfg.RawDir(config.DatasetGHCND), s.ID+".dly"),
			Label: s.ID,
		})
	}

	p.deps.Logger.Info("downloading station data", "dataset", "ghcnd", "stations", len(tasks))
	t := runDownloads(ctx, p.deps, p.client, datasetMeta{
		name:      config.DatasetGHCND,
		errPrefix: "GHCN-D Download",
		logErrors: true,
	}, tasks)
	t.log(p.deps.Logger, "ghcnd download complete")
	return nil
}

// locateStations fetches and filters the master inventory and persists the
// manifest. Any failure is soft: it is logged and an empty slice returned so
// downstream steps abort gracefully.
func (p *GHCND) locateStations(ctx context.Context) []domain.Station {
	cfg := p.deps.Config
	meta := datasetMeta{name: config.DatasetGHCND, errPrefix: "GHCN-D", logErrors: true}

	body, err := p.client.Get(ctx, cfg.GHCND.InventoryURL)
	if err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GHCN-D: Failed to download or process station list. Error: %v", err))
		return nil
	}
	stations, err := manifest.ParseGHCNDInventory(bytes.NewReader(body), cfg.TargetCountries)
	if err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GHCN-D: Failed to download or process station list. Error: %v", err))
		return nil
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GHCN-D: Failed to create data dir. Error: %v", err))
		return nil
	}
	if err := manifest.WriteStations(cfg.ManifestPath(config.DatasetGHCND), stations); err != nil {
		p.deps.logFailure(meta, fmt.Sprintf("GHCN-D: Failed to persist station list. Error: %v", err))
		return nil
	}

	p.deps.Logger.Info("station manifest written",
		"dataset", "ghcnd",
		"stations", len(stations),
		"path", cfg.ManifestPath(config.DatasetGHCND),
	)
	return stations
}

// Process parses every downloaded .dly file into per-year CSVs.
func (p *GHCND) Process(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadStations(cfg.ManifestPath(config.DatasetGHCND))
	if err != nil {
		p.deps.Logger.Error("station list not found, run the download step first", "error", err)
		return nil
	}
	byID := manifest.ByID(stations)

	files, err := filepath.Glob(filepath.Join(cfg.RawDir(config.DatasetGHCND), "*.dly"))
	if err != nil {
		return fmt.Errorf("list raw files: %w", err)
	}
	if len(files) == 0 {
		p.deps.Logger.Warn("no raw data found, run the download step first", "dataset", "ghcnd")
		return nil
	}

	p.deps.Logger.Info("processing raw files", "dataset", "ghcnd", "files", len(files))
	runProcessing(ctx, p.deps, datasetMeta{
		name:      config.DatasetGHCND,
		errPrefix: "GHCN-D Process",
		logErrors: true,
	}, files, func(path string) (int, error) {
		return p.processFile(path, byID)
	})
	return nil
}

// processFile reshapes one .dly file from wide (31 day columns per
// station-month-element row) to long (one row per date, one column per
// element), converts tenths to whole units, and writes one CSV per year.
func (p *GHCND) processFile(path string, stations map[string]domain.Station) (int, error) {
	cfg := p.deps.Config
	stationID := strings.TrimSuffix(filepath.Base(path), ".dly")

	station, ok := stations[stationID]
	if !ok {
		return 0, fmt.Errorf("no manifest entry for station %s", stationID)
	}

	required := make(map[string]string, len(cfg.GHCND.RequiredElements))
	for _, el := range cfg.GHCND.RequiredElements {
		required[el] = cfg.StandardColumns[el]
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	perYear := make(map[int]*table.Table)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		rec, err := parseDlyLine(scanner.Text())
		if err != nil {
			return 0, err
		}
		column, ok := required[rec.element]
		if !ok {
			continue
		}
		if !cfg.InScope(rec.year) {
			continue
		}

		for day := 1; day <= 31; day++ {
			v, ok := rec.value(day)
			if !ok {
				continue
			}
			date := time.Date(rec.year, time.Month(rec.month), day, 0, 0, 0, 0, time.UTC)
			if int(date.Month()) != rec.month || date.Day() != day {
				continue // day does not exist in this month
			}

			tbl, ok := perYear[rec.year]
			if !ok {
				tbl = table.New("date")
				perYear[rec.year] = tbl
			}
			tbl.Set(date.Format("2006-01-02"), column, domain.TenthsToUnits(float64(v)))
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	rows := 0
	for year, tbl := range perYear {
		out := filepath.Join(cfg.ProcessedDir(config.DatasetGHCND), station.CountryCode,
			fmt.Sprintf("%s_%d.csv", stationID, year))
		if err := tbl.WriteFile(out); err != nil {
			return rows, err
		}
		rows += tbl.Len()
	}
	return rows, nil
}

// dlyRecord is one parsed line of a .dly file: a month of values for one
// element at one station.
type dlyRecord struct {
	id      string
	year    int
	month   int
	element string
	values  [31]int
	present [31]bool
}

func (r *dlyRecord) value(day int) (int, bool) {
	return r.values[day-1], r.present[day-1]
}

// .dly layout: ID 0-11, year 11-15, month 15-17, element 17-21, then 31
// 8-character day fields whose first 5 characters are the value. -9999 marks
// a missing day.
const dlyLineLen = 21 + 31*8

func parseDlyLine(line string) (dlyRecord, error) {
	if len(line) < dlyLineLen-3 { // trailing flags of day 31 may be absent
		return dlyRecord{}, fmt.Errorf("short line: %d chars", len(line))
	}

	year, err := strconv.Atoi(strings.TrimSpace(line[11:15]))
	if err != nil {
		return dlyRecord{}, fmt.Errorf("bad year: %w", err)
	}
	month, err := strconv.Atoi(strings.TrimSpace(line[15:17]))
	if err != nil {
		return dlyRecord{}, fmt.Errorf("bad month: %w", err)
	}
	if month < 1 || month > 12 {
		return dlyRecord{}, fmt.Errorf("month %d out of range", month)
	}

	rec := dlyRecord{
		id:      strings.TrimSpace(line[0:11]),
		year:    year,
		month:   month,
		element: strings.TrimSpace(line[17:21]),
	}
	for day := 0; day < 31; day++ {
		start := 21 + day*8
		raw := strings.TrimSpace(line[start : start+5])
		v, err := strconv.Atoi(raw)
		if err != nil {
			return dlyRecord{}, fmt.Errorf("bad value for day %d: %q", day+1, raw)
		}
		if v == -9999 {
			continue
		}
		rec.values[day] = v
		rec.present[day] = true
	}
	return rec, nil
}
