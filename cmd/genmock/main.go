// Command genmock generates a small offline data tree (station manifests
// plus raw GHCN-D, GSOD, ISD hourly, and normals files) so the process steps
// can be exercised without hitting NOAA servers. Values are deterministic
// seasonal curves, built through the same fixed-width and CSV layouts the
// pipelines parse.
//
// Usage:
//
//	go run ./cmd/genmock -data-dir data -year 2020
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
)

func main() {
	dataDir := flag.String("data-dir", "data", "root of the generated data tree")
	year := flag.Int("year", 2020, "year to generate raw observations for")
	flag.Parse()

	g := generator{dataDir: *dataDir, year: *year}
	if err := g.run(); err != nil {
		log.Fatalf("genmock: %v", err)
	}
}

// Fixed mock stations: one per manifest scheme, both in South Africa so the
// processed tree lands under a single country folder.
var (
	mockGHCND = domain.Station{
		ID:          "SF000068816",
		Latitude:    -33.9648,
		Longitude:   18.6017,
		Elevation:   46,
		Name:        "CAPE TOWN INTL",
		CountryCode: "ZA",
	}
	mockISD = domain.ISDStation{
		USAF:        "688160",
		WBAN:        "99999",
		Name:        "CAPE TOWN INTL",
		FIPS:        "SF",
		Latitude:    -33.9648,
		Longitude:   18.6017,
		BeginYear:   1973,
		EndYear:     2025,
		CountryCode: "ZA",
	}
)

type generator struct {
	dataDir string
	year    int
}

func (g *generator) run() error {
	if err := os.MkdirAll(g.dataDir, 0o755); err != nil {
		return err
	}

	if err := manifest.WriteStations(
		filepath.Join(g.dataDir, "ghcnd_regional_stations.csv"),
		[]domain.Station{mockGHCND},
	); err != nil {
		return fmt.Errorf("ghcnd manifest: %w", err)
	}
	if err := manifest.WriteISDStations(
		filepath.Join(g.dataDir, "gsod_regional_stations.csv"),
		[]domain.ISDStation{mockISD},
	); err != nil {
		return fmt.Errorf("gsod manifest: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"ghcnd", g.writeGHCND},
		{"gsod", g.writeGSOD},
		{"isd", g.writeISD},
		{"normals", g.writeNormals},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		fmt.Printf("wrote %s fixtures\n", s.name)
	}
	fmt.Printf("mock data tree ready under %s\n", g.dataDir)
	return nil
}

// seasonal returns a southern-hemisphere temperature curve in °C for a day
// of year: warm in January, cool in July.
func seasonal(dayOfYear int) float64 {
	phase := 2 * math.Pi * float64(dayOfYear) / 365
	return 19 + 7*math.Cos(phase)
}

// writeGHCND renders one .dly file with TMAX, TMIN, and PRCP rows per month,
// values in tenths per the GHCN-D format.
func (g *generator) writeGHCND() error {
	var b strings.Builder
	start := time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)

	for month := 1; month <= 12; month++ {
		for _, el := range []string{"TMAX", "TMIN", "PRCP"} {
			fmt.Fprintf(&b, "%-11s%4d%02d%-4s", mockGHCND.ID, g.year, month, el)
			for day := 1; day <= 31; day++ {
				date := time.Date(g.year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
				if int(date.Month()) != month {
					fmt.Fprintf(&b, "%5d   ", -9999)
					continue
				}
				base := seasonal(int(date.Sub(start).Hours()/24) + 1)
				var v int
				switch el {
				case "TMAX":
					v = int(math.Round((base + 5) * 10))
				case "TMIN":
					v = int(math.Round((base - 5) * 10))
				case "PRCP":
					// Rain every third day.
					if day%3 == 0 {
						v = day * 4
					}
				}
				fmt.Fprintf(&b, "%5d   ", v)
			}
			b.WriteByte('\n')
		}
	}

	path := filepath.Join(g.dataDir, "raw", "ghcnd", mockGHCND.ID+".dly")
	return writeFile(path, []byte(b.String()))
}

// writeGSOD renders one imperial daily CSV for the mock ISD station,
// including a few sentinel-valued cells the converter must drop.
func (g *generator) writeGSOD() error {
	records := [][]string{{"STATION", "DATE", "MAX", "MIN", "PRCP", "WDSP"}}
	start := time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)

	for day := 0; day < 365; day++ {
		date := start.AddDate(0, 0, day)
		baseF := domain.CelsiusToFahrenheit(seasonal(day + 1))

		maxF := fmt.Sprintf("%.1f", baseF+9)
		minF := fmt.Sprintf("%.1f", baseF-9)
		prcp := "0.00"
		if day%3 == 0 {
			prcp = fmt.Sprintf("%.2f", float64(day%10)/20)
		}
		wdsp := fmt.Sprintf("%.1f", 4+float64(day%7))
		if day%50 == 0 {
			maxF, prcp, wdsp = "9999.9", "99.99", "999.9"
		}

		records = append(records, []string{
			mockISD.FileID(), date.Format("2006-01-02"), maxF, minF, prcp, wdsp,
		})
	}

	path := filepath.Join(g.dataDir, "raw", "gsod", strconv.Itoa(g.year), mockISD.FileID()+".csv")
	return writeCSVFile(path, records)
}

// writeISD renders one hourly CSV with the comma-packed TMP/DEW/WND coded
// fields, four observations per day.
func (g *generator) writeISD() error {
	records := [][]string{{"STATION", "DATE", "TMP", "DEW", "WND"}}
	start := time.Date(g.year, time.January, 1, 0, 0, 0, 0, time.UTC)

	for day := 0; day < 365; day++ {
		base := seasonal(day + 1)
		for _, hour := range []int{0, 6, 12, 18} {
			stamp := start.AddDate(0, 0, day).Add(time.Duration(hour) * time.Hour)
			temp := int(math.Round((base + float64(hour)/4 - 2) * 10))
			dew := temp - 80
			speed := 30 + (day+hour)%40

			tmp := fmt.Sprintf("%+05d,1", temp)
			if day%60 == 0 && hour == 0 {
				tmp = "+9999,9"
			}
			records = append(records, []string{
				mockISD.FileID(),
				stamp.Format("2006-01-02T15:04:05"),
				tmp,
				fmt.Sprintf("%+05d,1", dew),
				fmt.Sprintf("%03d,1,N,%04d,1", (day*7)%360, speed),
			})
		}
	}

	path := filepath.Join(g.dataDir, "raw", "isd_lite", strconv.Itoa(g.year), mockISD.FileID()+".csv")
	return writeCSVFile(path, records)
}

// writeNormals renders the long-form (date, element, value) normals CSV,
// temperatures in tenths °F and precipitation in hundredths of inches.
func (g *generator) writeNormals() error {
	records := [][]string{{"DATE", "ELEMENT", "VALUE"}}

	// Iterate a leap year so 02-29 is included, as the real product does.
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 366; day++ {
		date := start.AddDate(0, 0, day)
		baseF := domain.CelsiusToFahrenheit(seasonal(day + 1))
		monthDay := date.Format("01-02")

		records = append(records,
			[]string{monthDay, "DLY-TMAX-NORMAL", strconv.Itoa(int(math.Round((baseF + 8) * 10)))},
			[]string{monthDay, "DLY-TMIN-NORMAL", strconv.Itoa(int(math.Round((baseF - 8) * 10)))},
			[]string{monthDay, "DLY-PRCP-NORMAL", strconv.Itoa(2 + day%12)},
		)
	}

	path := filepath.Join(g.dataDir, "raw", "normals_daily", mockGHCND.ID+".csv")
	return writeCSVFile(path, records)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func writeCSVFile(path string, records [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
