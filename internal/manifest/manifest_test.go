package manifest

import (
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/couchcryptid/climate-station-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTargets = []string{"ZA", "MI", "MZ", "ZI", "AO", "CG", "TZ", "WA"}

func inventoryLine(id string, lat, lon, elev float64, state, name string) string {
	return fmt.Sprintf("%-11s %8.4f %9.4f %6.1f %-2s %-30s", id, lat, lon, elev, state, name)
}

func TestParseGHCNDInventory(t *testing.T) {
	inventory := strings.Join([]string{
		inventoryLine("SF000068816", -33.97, 18.6, 42.0, "", "CAPE TOWN INTL"),
		inventoryLine("MZ000067297", -19.12, 33.47, 732.0, "", "CHIMOIO"),
		inventoryLine("US1FLAL0048", 29.66, -82.37, 12.0, "FL", "GAINESVILLE"),
		inventoryLine("AGM00060445", 36.18, 5.32, 1050.0, "", "SETIF"),
		"", // blank lines are tolerated
	}, "\n")

	stations, err := ParseGHCNDInventory(strings.NewReader(inventory), testTargets)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "SF000068816", stations[0].ID)
	assert.Equal(t, "ZA", stations[0].CountryCode)
	assert.InDelta(t, -33.97, stations[0].Latitude, 1e-6)
	assert.InDelta(t, 18.6, stations[0].Longitude, 1e-6)
	assert.Equal(t, "CAPE TOWN INTL", stations[0].Name)

	assert.Equal(t, "MZ000067297", stations[1].ID)
	assert.Equal(t, "MZ", stations[1].CountryCode)
}

func TestParseGHCNDInventory_CountryInvariant(t *testing.T) {
	inventory := strings.Join([]string{
		inventoryLine("SF000068816", -33.97, 18.6, 42.0, "", "CAPE TOWN INTL"),
		inventoryLine("CF000064402", -4.25, 15.25, 312.0, "", "BRAZZAVILLE"),
		inventoryLine("USW00012345", 40.0, -100.0, 100.0, "NE", "SOMEWHERE"),
	}, "\n")

	stations, err := ParseGHCNDInventory(strings.NewReader(inventory), testTargets)
	require.NoError(t, err)

	wanted := make(map[string]bool)
	for _, iso := range testTargets {
		wanted[iso] = true
	}
	for _, s := range stations {
		assert.True(t, wanted[s.CountryCode], "station %s has out-of-scope country %s", s.ID, s.CountryCode)
	}
}

const isdHistory = `"USAF","WBAN","STATION NAME","CTRY","STATE","ICAO","LAT","LON","ELEV(M)","BEGIN","END"
"688160","99999","CAPE TOWN INTL","SF","","FACT","-33.965","+018.602","+0046.0","19730101","20250601"
"672970","99999","CHIMOIO","MZ","","FQCH","-19.117","+033.467","+0732.0","19560101","20250601"
"688161","99999","RETIRED SITE","SF","","","-33.900","+018.500","+0040.0","19310101","19651231"
"","54321","NO USAF ID","SF","","","-30.000","+020.000","+0100.0","19800101","20250601"
"725300","94846","CHICAGO OHARE","US","IL","KORD","+41.995","-087.934","+0205.4","19461001","20250601"
`

func TestParseISDHistory(t *testing.T) {
	stations, err := ParseISDHistory(strings.NewReader(isdHistory), testTargets, 1981)
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "688160", stations[0].USAF)
	assert.Equal(t, "99999", stations[0].WBAN)
	assert.Equal(t, "SF", stations[0].FIPS)
	assert.Equal(t, "ZA", stations[0].CountryCode)
	assert.Equal(t, 1973, stations[0].BeginYear)
	assert.Equal(t, 2025, stations[0].EndYear)
	assert.Equal(t, "688160-99999", stations[0].DisplayID())
	assert.Equal(t, "68816099999", stations[0].FileID())

	assert.Equal(t, "MZ", stations[1].CountryCode)
}

func TestParseISDHistory_InactiveStationsDropped(t *testing.T) {
	stations, err := ParseISDHistory(strings.NewReader(isdHistory), testTargets, 1981)
	require.NoError(t, err)
	for _, s := range stations {
		assert.GreaterOrEqual(t, s.EndYear, 1981, "station %s ended %d", s.DisplayID(), s.EndYear)
	}
}

func TestParseISDHistory_MissingColumn(t *testing.T) {
	_, err := ParseISDHistory(strings.NewReader("\"USAF\",\"WBAN\"\n"), testTargets, 1981)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing column")
}

func TestStationManifestRoundTrip(t *testing.T) {
	stations := []domain.Station{
		{ID: "SF000068816", Latitude: -33.97, Longitude: 18.6, Elevation: 42, Name: "CAPE TOWN INTL", CountryCode: "ZA"},
		{ID: "MZ000067297", Latitude: -19.12, Longitude: 33.47, Elevation: 732, Name: "CHIMOIO", CountryCode: "MZ"},
	}

	path := filepath.Join(t.TempDir(), "ghcnd_regional_stations.csv")
	require.NoError(t, WriteStations(path, stations))

	got, err := ReadStations(path)
	require.NoError(t, err)
	assert.Equal(t, stations, got)

	byID := ByID(got)
	assert.Equal(t, "ZA", byID["SF000068816"].CountryCode)
}

func TestISDManifestRoundTrip(t *testing.T) {
	stations := []domain.ISDStation{
		{USAF: "688160", WBAN: "99999", Name: "CAPE TOWN INTL", FIPS: "SF", CountryCode: "ZA",
			Latitude: -33.965, Longitude: 18.602, BeginYear: 1973, EndYear: 2025},
	}

	path := filepath.Join(t.TempDir(), "gsod_regional_stations.csv")
	require.NoError(t, WriteISDStations(path, stations))

	got, err := ReadISDStations(path)
	require.NoError(t, err)
	assert.Equal(t, stations, got)

	byFile := ByFileID(got)
	s, ok := byFile["68816099999"]
	require.True(t, ok)
	assert.Equal(t, "688160-99999", s.DisplayID())
}
