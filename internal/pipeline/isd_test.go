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
)

func TestISDProcess(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())

	raw := strings.Join([]string{
		`STATION,DATE,TMP,DEW,WND`,
		`68816099999,2020-01-01T06:00:00,"+0011,1","-0215,5","320,1,N,0050,1"`,
		`68816099999,2020-01-01T12:00:00,"+0234,1","+9999,9","320,1,N,9999,9"`,
		`68816099999,2020-01-01T18:00:00,,,"150,1,N,0103,1"`,
	}, "\n") + "\n"
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetISD), "2020", "68816099999.csv"), raw)

	require.NoError(t, NewISD(deps).Process(context.Background()))

	out, err := os.ReadFile(filepath.Join(cfg.ProcessedDir(config.DatasetISD), "ZA", "688160-99999_2020.csv"))
	require.NoError(t, err)
	want := strings.Join([]string{
		"date,dew_point_c,temp_c,wind_speed_ms",
		"2020-01-01 06:00:00,-21.5,1.1,5",
		"2020-01-01 12:00:00,,23.4,",
		"2020-01-01 18:00:00,,,10.3",
		"",
	}, "\n")
	assert.Equal(t, want, string(out))
}

func TestISDProcessAcceptsSpaceSeparatedTimestamps(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())

	raw := "STATION,DATE,TMP\n68816099999,2020-06-01 00:00:00,\"+0150,1\"\n"
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetISD), "2020", "68816099999.csv"), raw)

	require.NoError(t, NewISD(deps).Process(context.Background()))

	out, err := os.ReadFile(filepath.Join(cfg.ProcessedDir(config.DatasetISD), "ZA", "688160-99999_2020.csv"))
	require.NoError(t, err)
	assert.Equal(t, "date,temp_c\n2020-06-01 00:00:00,15\n", string(out))
}

func TestISDProcessMalformedCodedFieldLogged(t *testing.T) {
	deps := testDeps(t)
	cfg := deps.Config

	writeISDManifest(t, deps, capeTownISD())

	raw := "STATION,DATE,TMP\n68816099999,2020-01-01T06:00:00,\"abc,1\"\n"
	writeRawFile(t, filepath.Join(cfg.RawDir(config.DatasetISD), "2020", "68816099999.csv"), raw)

	require.NoError(t, NewISD(deps).Process(context.Background()))

	_, err := os.Stat(filepath.Join(cfg.ProcessedDir(config.DatasetISD), "ZA"))
	assert.True(t, os.IsNotExist(err))
	errors, err := os.ReadFile(cfg.ErrorLogPath())
	require.NoError(t, err)
	assert.Contains(t, string(errors), "ISD Process: Failed for 68816099999.csv")
}

func TestISDDownloadWithoutManifestIsSoft(t *testing.T) {
	deps := testDeps(t)

	require.NoError(t, NewISD(deps).Download(context.Background()))

	// No manifest means no tasks and no error-log entries.
	_, err := os.Stat(deps.Config.ErrorLogPath())
	assert.True(t, os.IsNotExist(err))
}
