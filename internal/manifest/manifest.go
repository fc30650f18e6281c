// Package manifest builds and persists the filtered station lists that act
// as the task source for the download and process phases.
//
// Two inventory formats are handled: the fixed-width GHCN-D station list
// (ghcnd-stations.txt) and the CSV ISD station history (isd-history.csv).
// Filtering attaches an ISO country code to every kept station, so the
// manifest invariant holds: every row's country is in the configured target
// set.
package manifest

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/climate-station-etl/internal/domain"
)

// GHCN-D inventory column positions, from the published ghcnd-stations.txt
// format: ID 0-11, latitude 12-20, longitude 21-30, elevation 31-37,
// state 38-40, name 41-71.
type fwField struct{ start, end int }

var ghcndLayout = struct {
	id, lat, lon, elev, state, name fwField
}{
	id:    fwField{0, 11},
	lat:   fwField{12, 20},
	lon:   fwField{21, 30},
	elev:  fwField{31, 37},
	state: fwField{38, 40},
	name:  fwField{41, 71},
}

// ParseGHCNDInventory reads the fixed-width GHCN-D station list and returns
// the stations whose FIPS ID prefix resolves to one of the target ISO codes.
func ParseGHCNDInventory(r io.Reader, targets []string) ([]domain.Station, error) {
	wanted := targetSet(targets)

	var stations []domain.Station
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if len(strings.TrimSpace(line)) < ghcndLayout.lon.end {
			continue
		}

		s := domain.Station{
			ID:        cut(line, ghcndLayout.id),
			Latitude:  parseFloat(cut(line, ghcndLayout.lat)),
			Longitude: parseFloat(cut(line, ghcndLayout.lon)),
			Elevation: parseFloat(cut(line, ghcndLayout.elev)),
			State:     cut(line, ghcndLayout.state),
			Name:      cut(line, ghcndLayout.name),
		}

		iso, ok := domain.ISOForFIPS(s.FIPS())
		if !ok {
			continue
		}
		if _, ok := wanted[iso]; !ok {
			continue
		}
		s.CountryCode = iso
		stations = append(stations, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	return stations, nil
}

// ParseISDHistory reads isd-history.csv and returns stations in the target
// FIPS countries that were still active at or after minYear. Stations with a
// blank USAF or WBAN identifier are dropped.
func ParseISDHistory(r io.Reader, targets []string, minYear int) ([]domain.ISDStation, error) {
	wantedFIPS := make(map[string]struct{})
	for iso := range targetSet(targets) {
		if fips, ok := domain.FIPSForISO(iso); ok {
			wantedFIPS[fips] = struct{}{}
		}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read ISD history header: %w", err)
	}
	col, err := columnIndex(header, "USAF", "WBAN", "STATION NAME", "CTRY", "LAT", "LON", "BEGIN", "END")
	if err != nil {
		return nil, err
	}

	var stations []domain.ISDStation
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read ISD history row: %w", err)
		}

		fips := field(record, col["CTRY"])
		if _, ok := wantedFIPS[fips]; !ok {
			continue
		}

		s := domain.ISDStation{
			USAF:      field(record, col["USAF"]),
			WBAN:      field(record, col["WBAN"]),
			Name:      field(record, col["STATION NAME"]),
			FIPS:      fips,
			Latitude:  parseFloat(field(record, col["LAT"])),
			Longitude: parseFloat(field(record, col["LON"])),
			BeginYear: yearPrefix(field(record, col["BEGIN"])),
			EndYear:   yearPrefix(field(record, col["END"])),
		}
		if s.USAF == "" || s.WBAN == "" {
			continue
		}
		if s.EndYear < minYear {
			continue
		}
		s.CountryCode = domain.CountryForFIPS(fips)
		stations = append(stations, s)
	}
	return stations, nil
}

// WriteStations persists a GHCN-D manifest.
func WriteStations(path string, stations []domain.Station) error {
	return writeCSV(path, []string{"ID", "LATITUDE", "LONGITUDE", "ELEVATION", "STATE", "NAME", "COUNTRY_CODE"},
		len(stations), func(i int) []string {
			s := stations[i]
			return []string{
				s.ID,
				formatFloat(s.Latitude),
				formatFloat(s.Longitude),
				formatFloat(s.Elevation),
				s.State,
				s.Name,
				s.CountryCode,
			}
		})
}

// ReadStations loads a GHCN-D manifest written by WriteStations.
func ReadStations(path string) ([]domain.Station, error) {
	records, col, err := readCSV(path, "ID", "LATITUDE", "LONGITUDE", "ELEVATION", "STATE", "NAME", "COUNTRY_CODE")
	if err != nil {
		return nil, err
	}
	stations := make([]domain.Station, 0, len(records))
	for _, rec := range records {
		stations = append(stations, domain.Station{
			ID:          field(rec, col["ID"]),
			Latitude:    parseFloat(field(rec, col["LATITUDE"])),
			Longitude:   parseFloat(field(rec, col["LONGITUDE"])),
			Elevation:   parseFloat(field(rec, col["ELEVATION"])),
			State:       field(rec, col["STATE"]),
			Name:        field(rec, col["NAME"]),
			CountryCode: field(rec, col["COUNTRY_CODE"]),
		})
	}
	return stations, nil
}

// WriteISDStations persists a GSOD/ISD manifest. STATION_ID and FILENAME_ID
// are derived columns written for readers of the manifest file; they are
// recomputed from USAF/WBAN when loading.
func WriteISDStations(path string, stations []domain.ISDStation) error {
	return writeCSV(path, []string{"USAF", "WBAN", "STATION_NAME", "CTRY", "COUNTRY_CODE", "LAT", "LON", "BEGIN", "END", "STATION_ID", "FILENAME_ID"},
		len(stations), func(i int) []string {
			s := stations[i]
			return []string{
				s.USAF,
				s.WBAN,
				s.Name,
				s.FIPS,
				s.CountryCode,
				formatFloat(s.Latitude),
				formatFloat(s.Longitude),
				strconv.Itoa(s.BeginYear),
				strconv.Itoa(s.EndYear),
				s.DisplayID(),
				s.FileID(),
			}
		})
}

// ReadISDStations loads a GSOD/ISD manifest written by WriteISDStations.
func ReadISDStations(path string) ([]domain.ISDStation, error) {
	records, col, err := readCSV(path, "USAF", "WBAN", "STATION_NAME", "CTRY", "COUNTRY_CODE", "LAT", "LON", "BEGIN", "END")
	if err != nil {
		return nil, err
	}
	stations := make([]domain.ISDStation, 0, len(records))
	for _, rec := range records {
		stations = append(stations, domain.ISDStation{
			USAF:        field(rec, col["USAF"]),
			WBAN:        field(rec, col["WBAN"]),
			Name:        field(rec, col["STATION_NAME"]),
			FIPS:        field(rec, col["CTRY"]),
			CountryCode: field(rec, col["COUNTRY_CODE"]),
			Latitude:    parseFloat(field(rec, col["LAT"])),
			Longitude:   parseFloat(field(rec, col["LON"])),
			BeginYear:   int(parseFloat(field(rec, col["BEGIN"]))),
			EndYear:     int(parseFloat(field(rec, col["END"]))),
		})
	}
	return stations, nil
}

// ByID indexes a GHCN-D manifest by station ID.
func ByID(stations []domain.Station) map[string]domain.Station {
	m := make(map[string]domain.Station, len(stations))
	for _, s := range stations {
		m[s.ID] = s
	}
	return m
}

// ByFileID indexes a GSOD/ISD manifest by the hyphen-less filename identifier.
func ByFileID(stations []domain.ISDStation) map[string]domain.ISDStation {
	m := make(map[string]domain.ISDStation, len(stations))
	for _, s := range stations {
		m[s.FileID()] = s
	}
	return m
}

func writeCSV(path string, header []string, n int, row func(i int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	cw := csv.NewWriter(f)
	if err := cw.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write manifest header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := cw.Write(row(i)); err != nil {
			f.Close()
			return fmt.Errorf("write manifest row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func readCSV(path string, required ...string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest header: %w", err)
	}
	col, err := columnIndex(header, required...)
	if err != nil {
		return nil, nil, err
	}

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read manifest rows: %w", err)
	}
	return records, col, nil
}

func columnIndex(header []string, required ...string) (map[string]int, error) {
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return col, nil
}

func field(record []string, idx int) string {
	if idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func cut(line string, f fwField) string {
	if len(line) < f.start {
		return ""
	}
	end := f.end
	if len(line) < end {
		end = len(line)
	}
	return strings.TrimSpace(line[f.start:end])
}

// parseFloat tolerates blank or junk numeric fields, returning 0 like the
// inventory's own missing-value convention.
func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// yearPrefix extracts the year from a BEGIN/END date written as YYYYMMDD.
func yearPrefix(s string) int {
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func targetSet(targets []string) map[string]struct{} {
	set := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		set[t] = struct{}{}
	}
	return set
}
