package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/climate-station-etl/internal/config"
	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/couchcryptid/climate-station-etl/internal/manifest"
)

func writeISDManifest(t *testing.T, deps Deps, stations ...domain.ISDStation) {
	t.Helper()
	require.NoError(t, manifest.WriteISDStations(deps.Config.ManifestPath(config.DatasetGSOD), stations))
}

func capeTownISD() domain.ISDStation {
	return domain.ISDStation{
		USAF:        "688160",
		WBAN:        "99999",
		Name:        "CAPE TOWN INTL",
		FIPS:        "SF",
		BeginYear:   1973,
		EndYear:     2025,
		CountryCode: "ZA",
	}
}

func TestGSODProcess(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())

	raw := strings.Join([]string{
		"STATION,DATE,MAX,MIN,PRCP,WDSP",
		"68816099999,2020-01-01,68.0,50.0,0.10,5.0",
		"68816099999,2020-01-02,9999.9,59.0,99.99,999.9",
		"68816099999,1950-01-01,70.0,55.0,0.00,3.0",
	}, "\n") + "\n"
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetGSOD), "2020", "68816099999.csv"), raw)

	require.NoError(t, NewGSOD(deps).Process(context.Background()))

	out, err := os.ReadFile(filepath.Join(cfg.ProcessedDir(config.DatasetGSOD), "ZA", "688160-99999_2020.csv"))
	require.NoError(t, err)
	want := strings.Join([]string{
		"date,prcp_mm,tmax_c,tmin_c,wind_speed_ms",
		"2020-01-01,2.54,20,10,2.5722",
		"2020-01-02,,,15,",
		"",
	}, "\n")
	assert.Equal(t, want, string(out))

	// The out-of-scope 1950 row was dropped, not written to another file.
	_, err = os.Stat(filepath.Join(cfg.ProcessedDir(config.DatasetGSOD), "ZA", "688160-99999_1950.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestGSODProcessUnknownStationLogged(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())

	raw := "STATION,DATE,MAX\n12345678901,2020-01-01,68.0\n"
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetGSOD), "2020", "12345678901.csv"), raw)

	require.NoError(t, NewGSOD(deps).Process(context.Background()))

	errors, err := os.ReadFile(cfg.ErrorLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(errors), "GSOD Process: Failed for 12345678901.csv")
	assert.Contains(t, string(errors), "could not find metadata for station 12345678901")
}

func TestGSODProcessEmptyFileIsNotAnError(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetGSOD), "2020", "68816099999.csv"), "")

	require.NoError(t, NewGSOD(deps).Process(context.Background()))

	_, err := os.Stat(cfg.ErrorLogPath())
	assert.True(t, os.IsNotExist(err))
}
