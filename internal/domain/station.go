package domain

// Station is a GHCN-D inventory entry. The Normals pipeline shares this type
// because normals products are keyed by GHCN-D station IDs.
type Station struct {
	ID        string
	Latitude  float64
	Longitude float64
	Elevation float64
	State     string
	Name      string

	// CountryCode is the resolved ISO code, derived from the FIPS prefix
	// of the station ID when the manifest is built.
	CountryCode string
}

// FIPS returns the FIPS 10-4 country prefix of the station ID.
func (s Station) FIPS() string {
	if len(s.ID) < 2 {
		return ""
	}
	return s.ID[:2]
}

// ISDStation is an entry from the ISD station history, shared by the GSOD
// (daily summary) and ISD (hourly) pipelines.
type ISDStation struct {
	USAF      string
	WBAN      string
	Name      string
	FIPS      string
	Latitude  float64
	Longitude float64
	BeginYear int
	EndYear   int

	// CountryCode is the resolved ISO code for the FIPS country.
	CountryCode string
}

// DisplayID returns the hyphenated USAF-WBAN identifier used in processed
// output filenames.
func (s ISDStation) DisplayID() string {
	return s.USAF + "-" + s.WBAN
}

// FileID returns the concatenated USAF+WBAN identifier used in raw data
// filenames on the NCEI access servers.
func (s ISDStation) FileID() string {
	return s.USAF + s.WBAN
}
