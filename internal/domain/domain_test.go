package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountryMap_Bidirectional(t *testing.T) {
	for iso, fips := range fipsByISO {
		back, ok := ISOForFIPS(fips)
		require.True(t, ok, "missing inverse for %s", fips)
		assert.Equal(t, iso, back)
	}
}

func TestCountryMap_Lookups(t *testing.T) {
	fips, ok := FIPSForISO("ZA")
	require.True(t, ok)
	assert.Equal(t, "SF", fips)

	iso, ok := ISOForFIPS("CF")
	require.True(t, ok)
	assert.Equal(t, "CG", iso)

	_, ok = FIPSForISO("XX")
	assert.False(t, ok)
}

func TestCountryForFIPS_Fallback(t *testing.T) {
	assert.Equal(t, "ZA", CountryForFIPS("SF"))
	assert.Equal(t, UnknownCountry, CountryForFIPS("US"))
	assert.Equal(t, UnknownCountry, CountryForFIPS(""))
}

func TestUnitConversions(t *testing.T) {
	assert.InDelta(t, 0.0, FahrenheitToCelsius(32), 1e-9)
	assert.InDelta(t, 100.0, FahrenheitToCelsius(212), 1e-9)
	assert.InDelta(t, 25.4, InchesToMillimeters(1), 1e-9)
	assert.InDelta(t, 0.514444, KnotsToMetersPerSecond(1), 1e-9)
	assert.InDelta(t, 2.5, TenthsToUnits(25), 1e-9)
}

func TestIsGSODMissing(t *testing.T) {
	assert.True(t, IsGSODMissing(99.99))
	assert.True(t, IsGSODMissing(999.9))
	assert.True(t, IsGSODMissing(9999.9))
	assert.False(t, IsGSODMissing(0))
	assert.False(t, IsGSODMissing(68.0))
}

func TestParseScaledValue(t *testing.T) {
	t.Run("positive tenths", func(t *testing.T) {
		v, err := ParseScaledValue("+0011,1")
		require.NoError(t, err)
		assert.InDelta(t, 1.1, v.Value, 1e-9)
		assert.Equal(t, "1", v.Quality)
		assert.False(t, v.Missing)
	})

	t.Run("negative tenths", func(t *testing.T) {
		v, err := ParseScaledValue("-0215,5")
		require.NoError(t, err)
		assert.InDelta(t, -21.5, v.Value, 1e-9)
		assert.Equal(t, "5", v.Quality)
	})

	t.Run("missing sentinel", func(t *testing.T) {
		v, err := ParseScaledValue("+9999,9")
		require.NoError(t, err)
		assert.True(t, v.Missing)
		assert.Equal(t, "9", v.Quality)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseScaledValue("+0011")
		assert.Error(t, err)

		_, err = ParseScaledValue("abc,1")
		assert.Error(t, err)
	})
}

func TestParseWindSpeed(t *testing.T) {
	t.Run("speed segment", func(t *testing.T) {
		v, err := ParseWindSpeed("160,1,N,0021,1")
		require.NoError(t, err)
		assert.InDelta(t, 2.1, v.Value, 1e-9)
		assert.Equal(t, "1", v.Quality)
	})

	t.Run("missing speed", func(t *testing.T) {
		v, err := ParseWindSpeed("999,9,9,9999,9")
		require.NoError(t, err)
		assert.True(t, v.Missing)
	})

	t.Run("wrong segment count", func(t *testing.T) {
		_, err := ParseWindSpeed("160,1,N,0021")
		assert.Error(t, err)
	})
}

func TestStationIdentifiers(t *testing.T) {
	s := ISDStation{USAF: "688160", WBAN: "99999"}
	assert.Equal(t, "688160-99999", s.DisplayID())
	assert.Equal(t, "68816099999", s.FileID())

	g := Station{ID: "SF000068816"}
	assert.Equal(t, "SF", g.FIPS())
	assert.Empty(t, Station{ID: "S"}.FIPS())
}
