// Command validate performs offline integrity checks on a pipeline data
// tree: manifest consistency, processed-file layout, CSV content, and the
// error log format. It reads the same environment configuration as the
// pipelines, so it validates against the scope an actual run used.
//
// Usage:
//
//	DATA_DIR=data go run ./cmd/validate
package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
)

func main() {
	dataDir := flag.String("data-dir", "", "data tree to validate (overrides DATA_DIR)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	os.Exit(run(cfg))
}

// phase tracks pass/fail for one validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// datasetSpec describes the expected shape of one processed dataset tree.
type datasetSpec struct {
	dataset     string
	filePattern *regexp.Regexp
	keyName     string
	keyLayout   string
	columns     map[string]bool
	ghcndIDs    bool // station IDs come from the GHCN-D manifest, not ISD
}

var specs = []datasetSpec{
	{
		dataset:     config.DatasetGHCND,
		filePattern: regexp.MustCompile(`^([A-Z0-9]{11})_(\d{4})\.csv$`),
		keyName:     "date",
		keyLayout:   "2006-01-02",
		columns:     map[string]bool{"tmax_c": true, "tmin_c": true, "prcp_mm": true},
		ghcndIDs:    true,
	},
	{
		dataset:     config.DatasetGSOD,
		filePattern: regexp.MustCompile(`^(\d{6}-\d{5})_(\d{4})\.csv$`),
		keyName:     "date",
		keyLayout:   "2006-01-02",
		columns:     map[string]bool{"tmax_c": true, "tmin_c": true, "prcp_mm": true, "wind_speed_ms": true},
	},
	{
		dataset:     config.DatasetISD,
		filePattern: regexp.MustCompile(`^(\d{6}-\d{5})_(\d{4})\.csv$`),
		keyName:     "date",
		keyLayout:   "2006-01-02 15:04:05",
		columns:     map[string]bool{"temp_c": true, "dew_point_c": true, "wind_speed_ms": true},
	},
	{
		dataset:     config.DatasetNormals,
		filePattern: regexp.MustCompile(`^([A-Z0-9]{11})_normals_1991-2020\.csv$`),
		keyName:     "month_day",
		keyLayout:   "01-02",
		columns:     map[string]bool{"tmax_c_normal": true, "tmin_c_normal": true, "prcp_mm_normal": true},
		ghcndIDs:    true,
	},
}

func run(cfg *config.Config) int {
	fmt.Println("=== Climate Data Integrity Validation ===")
	fmt.Println()

	ghcndIDs, isdIDs := loadManifestIDs(cfg)

	phases := []*phase{
		validateManifests(cfg),
		validateLayout(cfg, ghcndIDs, isdIDs),
		validateContent(cfg),
		validateErrorLog(cfg),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// loadManifestIDs reads both manifests, tolerating absence: a tree that only
// ran some pipelines is still valid.
func loadManifestIDs(cfg *config.Config) (ghcnd, isd map[string]string) {
	ghcnd = make(map[string]string)
	isd = make(map[string]string)

	if stations, err := manifest.ReadStations(cfg.ManifestPath(config.DatasetGHCND)); err == nil {
		for _, s := range stations {
			ghcnd[s.ID] = s.CountryCode
		}
	}
	if stations, err := manifest.ReadISDStations(cfg.ManifestPath(config.DatasetGSOD)); err == nil {
		for _, s := range stations {
			isd[s.DisplayID()] = s.CountryCode
		}
	}
	return ghcnd, isd
}

// validateManifests checks that persisted manifests resolve to valid target
// countries.
func validateManifests(cfg *config.Config) *phase {
	p := &phase{name: "Phase 1: Station Manifests"}
	targets := make(map[string]bool, len(cfg.TargetCountries))
	for _, iso := range cfg.TargetCountries {
		targets[iso] = true
	}

	stations, err := manifest.ReadStations(cfg.ManifestPath(config.DatasetGHCND))
	if err == nil {
		for _, s := range stations {
			if !targets[s.CountryCode] {
				p.errorf("ghcnd manifest: station %s has out-of-scope country %q", s.ID, s.CountryCode)
			}
			if iso, ok := domain.ISOForFIPS(s.FIPS()); !ok || iso != s.CountryCode {
				p.errorf("ghcnd manifest: station %s FIPS prefix %q does not resolve to %q", s.ID, s.FIPS(), s.CountryCode)
			}
		}
	}

	isdStations, err := manifest.ReadISDStations(cfg.ManifestPath(config.DatasetGSOD))
	if err == nil {
		for _, s := range isdStations {
			if !targets[s.CountryCode] {
				p.errorf("gsod manifest: station %s has out-of-scope country %q", s.DisplayID(), s.CountryCode)
			}
			if s.EndYear < cfg.StartYear {
				p.errorf("gsod manifest: station %s inactive since %d, before scope start %d", s.DisplayID(), s.EndYear, cfg.StartYear)
			}
		}
	}
	return p
}

// validateLayout walks each processed tree checking folder and filename
// conventions against the manifests.
func validateLayout(cfg *config.Config, ghcndIDs, isdIDs map[string]string) *phase {
	p := &phase{name: "Phase 2: Processed Tree Layout"}

	for _, spec := range specs {
		ids := isdIDs
		if spec.ghcndIDs {
			ids = ghcndIDs
		}

		root := cfg.ProcessedDir(spec.dataset)
		entries, err := os.ReadDir(root)
		if err != nil {
			continue // dataset not processed, fine
		}
		for _, country := range entries {
			if !country.IsDir() {
				p.errorf("%s: unexpected file %s at country level", spec.dataset, country.Name())
				continue
			}
			files, err := os.ReadDir(filepath.Join(root, country.Name()))
			if err != nil {
				p.errorf("%s/%s: %v", spec.dataset, country.Name(), err)
				continue
			}
			for _, f := range files {
				m := spec.filePattern.FindStringSubmatch(f.Name())
				if m == nil {
					p.errorf("%s/%s: filename %q does not match dataset pattern", spec.dataset, country.Name(), f.Name())
					continue
				}
				if want, ok := ids[m[1]]; ok && want != country.Name() {
					p.errorf("%s: station %s filed under %q, manifest says %q", spec.dataset, m[1], country.Name(), want)
				}
				if len(m) > 2 && m[2] != "" {
					year, _ := strconv.Atoi(m[2])
					if !cfg.InScope(year) {
						p.errorf("%s/%s: file %q for out-of-scope year %d", spec.dataset, country.Name(), f.Name(), year)
					}
				}
			}
		}
	}
	return p
}

// validateContent parses every processed CSV: expected key column, known
// measurement columns, parseable keys and values, rows in order.
func validateContent(cfg *config.Config) *phase {
	p := &phase{name: "Phase 3: Processed File Content"}

	for _, spec := range specs {
		files, err := filepath.Glob(filepath.Join(cfg.ProcessedDir(spec.dataset), "*", "*.csv"))
		if err != nil {
			p.errorf("%s: %v", spec.dataset, err)
			continue
		}
		for _, path := range files {
			checkFile(p, spec, path)
		}
	}
	return p
}

func checkFile(p *phase, spec datasetSpec, path string) {
	name := filepath.Base(path)

	f, err := os.Open(path)
	if err != nil {
		p.errorf("%s: %v", name, err)
		return
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		p.errorf("%s: read header: %v", name, err)
		return
	}
	if len(header) < 2 {
		p.errorf("%s: no measurement columns", name)
		return
	}
	if header[0] != spec.keyName {
		p.errorf("%s: key column %q, want %q", name, header[0], spec.keyName)
	}
	for _, col := range header[1:] {
		if !spec.columns[col] {
			p.errorf("%s: unknown column %q", name, col)
		}
	}
	if !sort.StringsAreSorted(header[1:]) {
		p.errorf("%s: columns not sorted", name)
	}

	var prevKey string
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			p.errorf("%s line %d: %v", name, line, err)
			return
		}
		key := record[0]
		if _, err := time.Parse(spec.keyLayout, key); err != nil {
			p.errorf("%s line %d: bad key %q", name, line, key)
		}
		if key <= prevKey {
			p.errorf("%s line %d: key %q not after %q", name, line, key, prevKey)
		}
		prevKey = key

		populated := 0
		for i, cell := range record[1:] {
			if cell == "" {
				continue
			}
			populated++
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				p.errorf("%s line %d: column %q: bad value %q", name, line, header[i+1], cell)
			}
		}
		if populated == 0 {
			p.errorf("%s line %d: row has no values", name, line)
		}
	}
	if line == 1 {
		p.errorf("%s: no data rows", name)
	}
}

// validateErrorLog checks every error-log line carries the expected
// timestamp prefix.
func validateErrorLog(cfg *config.Config) *phase {
	p := &phase{name: "Phase 4: Error Log Format"}

	f, err := os.Open(cfg.ErrorLogPath())
	if err != nil {
		return p // no errors logged, nothing to check
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		stamp, _, ok := strings.Cut(text, ": ")
		if !ok {
			p.errorf("line %d: no timestamp separator", line)
			continue
		}
		if _, err := time.Parse(time.ANSIC, stamp); err != nil {
			p.errorf("line %d: bad timestamp %q", line, stamp)
		}
	}
	if err := scanner.Err(); err != nil {
		p.errorf("read: %v", err)
	}
	return p
}
