package domain

// UnknownCountry is the sentinel output folder for stations whose FIPS code
// has no ISO mapping. Falling back keeps a single unmapped station from
// failing a whole processing batch.
const UnknownCountry = "unknown"

// fipsByISO is the authoritative country-code table for the target region.
// Keys are the project's ISO-style codes, values the FIPS 10-4 codes used by
// NOAA inventories and GHCN-D station-ID prefixes.
var fipsByISO = map[string]string{
	"ZA": "SF", // South Africa
	"MI": "MI", // Malawi
	"MZ": "MZ", // Mozambique
	"ZI": "ZI", // Zimbabwe
	"AO": "AO", // Angola
	"CG": "CF", // Congo
	"TZ": "TZ", // Tanzania
	"WA": "WA", // Namibia
}

// isoByFIPS is the inverse of fipsByISO, built once at init so both lookup
// directions are O(1).
var isoByFIPS = func() map[string]string {
	m := make(map[string]string, len(fipsByISO))
	for iso, fips := range fipsByISO {
		m[fips] = iso
	}
	return m
}()

// FIPSForISO returns the FIPS 10-4 code for a project ISO code.
func FIPSForISO(iso string) (string, bool) {
	fips, ok := fipsByISO[iso]
	return fips, ok
}

// ISOForFIPS returns the project ISO code for a FIPS 10-4 code.
func ISOForFIPS(fips string) (string, bool) {
	iso, ok := isoByFIPS[fips]
	return iso, ok
}

// CountryForFIPS resolves a FIPS code to an ISO output folder, falling back
// to UnknownCountry when the code is not in the table.
func CountryForFIPS(fips string) string {
	if iso, ok := isoByFIPS[fips]; ok {
		return iso
	}
	return UnknownCountry
}
