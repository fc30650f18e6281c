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
	"time"

	"github.com/couchcryptid/climate-station-etl/internal/adapter/noaa"
	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
	"github.com/couchcryptid/climate-station-etl/internal/table"
)

// ISD is the hourly Integrated Surface Dataset pipeline. It reuses the GSOD
// station manifest: run the gsod download step first to generate it.
type ISD struct {
	deps   Deps
	client *noaa.Client
}

// NewISD creates the ISD hourly pipeline.
func NewISD(deps Deps) *ISD {
	return &ISD{
		deps:   deps,
		client: noaa.NewClient(deps.Config.ISD.FetchTimeout, deps.Logger),
	}
}

// Download fetches one hourly CSV per (station, year) from the global-hourly
// access server, reusing the GSOD manifest as the task source.
func (p *ISD) Download(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadISDStations(cfg.ManifestPath(config.DatasetGSOD))
	if err != nil {
		p.deps.Logger.Error("GSOD station list not found, run the gsod download step first to generate it", "error", err)
		return nil
	}

	var tasks []fetchTask
	for year := cfg.StartYear; year <= cfg.EndYear; year++ {
		for _, s := range stations {
			fid := s.FileID()
			tasks = append(tasks, fetchTask{
				URL:   fmt.Sprintf("%s%d/%s.csv", cfg.ISD.DataBaseURL, year, fid),
				Dest:  filepath.Join(cfg.RawDir(config.DatasetISD), strconv.Itoa(year), fid+".csv"),
				Label: fmt.Sprintf("%s/%d", fid, year),
			})
		}
	}

	p.deps.Logger.Info("downloading hourly station data", "dataset", "isd", "stations", len(stations))
	t := runDownloads(ctx, p.deps, p.client, datasetMeta{
		name:      config.DatasetISD,
		errPrefix: "ISD Download",
		benign404: true,
		logErrors: true,
	}, tasks)
	t.log(p.deps.Logger, "isd download complete")
	return nil
}

// Process decodes the comma-packed coded fields of every raw hourly CSV into
// metric columns, one output file per station-year.
func (p *ISD) Process(ctx context.Context) error {
	cfg := p.deps.Config

	stations, err := manifest.ReadISDStations(cfg.ManifestPath(config.DatasetGSOD))
	if err != nil {
		p.deps.Logger.Error("GSOD station list not found, run the gsod download step first", "error", err)
		return nil
	}
	byFileID := manifest.ByFileID(stations)

	files, err := filepath.Glob(filepath.Join(cfg.RawDir(config.DatasetISD), "*", "*.csv"))
	if err != nil {
		return fmt.Errorf("list raw files: %w", err)
	}
	if len(files) == 0 {
		p.deps.Logger.Warn("no raw data found, run the download step first", "dataset", "isd")
		return nil
	}

	p.deps.Logger.Info("processing raw files", "dataset", "isd", "files", len(files))
	runProcessing(ctx, p.deps, datasetMeta{
		name:      config.DatasetISD,
		errPrefix: "ISD Process",
		logErrors: true,
	}, files, func(path string) (int, error) {
		return p.processFile(path, byFileID)
	})
	return nil
}

// isdColumns maps raw coded columns to their output column and decoder.
var isdColumns = []struct {
	raw   string
	out   string
	parse func(string) (domain.CodedValue, error)
}{
	{"TMP", "temp_c", domain.ParseScaledValue},
	{"DEW", "dew_point_c", domain.ParseScaledValue},
	{"WND", "wind_speed_ms", domain.ParseWindSpeed},
}

func (p *ISD) processFile(path string, stations map[string]domain.ISDStation) (int, error) {
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

	perYear := make(map[int]*table.Table)
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read row: %w", err)
		}
		if dateIdx >= len(record) {
			continue
		}

		stamp, err := parseISDTimestamp(strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return 0, err
		}
		if !cfg.InScope(stamp.Year()) {
			continue
		}

		for _, c := range isdColumns {
			idx, ok := col[c.raw]
			if !ok || idx >= len(record) {
				continue
			}
			field := strings.TrimSpace(record[idx])
			if field == "" {
				continue
			}
			v, err := c.parse(field)
			if err != nil {
				return 0, err
			}
			if v.Missing {
				continue
			}

			tbl, ok := perYear[stamp.Year()]
			if !ok {
				tbl = table.New("date")
				perYear[stamp.Year()] = tbl
			}
			tbl.Set(stamp.Format("2006-01-02 15:04:05"), c.out, v.Value)
		}
	}
	if len(perYear) == 0 {
		return 0, nil
	}

	fid := strings.TrimSuffix(filepath.Base(path), ".csv")
	station, ok := stations[fid]
	if !ok {
		return 0, fmt.Errorf("could not find metadata for station %s", fid)
	}

	rows := 0
	for year, tbl := range perYear {
		out := filepath.Join(cfg.ProcessedDir(config.DatasetISD), station.CountryCode,
			fmt.Sprintf("%s_%d.csv", station.DisplayID(), year))
		if err := tbl.WriteFile(out); err != nil {
			return rows, err
		}
		rows += tbl.Len()
	}
	return rows, nil
}

// parseISDTimestamp accepts the two timestamp layouts that appear in
// global-hourly files.
func parseISDTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad timestamp %q", s)
}
