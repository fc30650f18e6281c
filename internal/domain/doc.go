// Package domain models NOAA climate-station observation data.
//
// # Data Sources
//
// All four datasets are published by NOAA's National Centers for
// Environmental Information (NCEI) at https://www.ncei.noaa.gov:
//
//   - GHCN-D: Global Historical Climatology Network - Daily. One fixed-width
//     .dly file per station, one row per (station, year, month, element) with
//     31 day-value fields of 8 characters each (5-char value + 3 flag chars).
//   - GSOD: Global Summary of the Day. One CSV per (station, year) with
//     imperial units (Fahrenheit, inches, knots).
//   - ISD global-hourly: hourly CSVs sharing the GSOD station inventory, with
//     comma-packed coded fields (see below).
//   - Normals: 1991-2020 climatological daily averages, one CSV per station
//     of (month-day, element, value) triples.
//
// # Station Identifiers
//
// GHCN-D stations carry an 11-character ID whose first two characters are the
// station's FIPS 10-4 country code (e.g. "SF000068816" is in South Africa).
// ISD/GSOD stations are identified by a USAF/WBAN pair, joined with a hyphen
// for display ("688160-99999") and without one in data filenames
// ("68816099999").
//
// # Country Codes
//
// Source inventories use FIPS 10-4 country codes; output directories use the
// project's ISO-style codes. The two schemes are reconciled through a single
// bidirectional table, [FIPSForISO] and [ISOForFIPS]. Codes with no mapping
// resolve to [UnknownCountry] rather than failing the file.
//
// # Units and Sentinels
//
// GHCN-D element values are tenths of units (tenths of °C, tenths of mm);
// -9999 marks a missing day. GSOD uses 99.99 / 999.9 / 9999.9 as missing
// sentinels depending on column width. ISD coded fields use all-nines value
// segments (+9999 temperature, 9999 wind speed). Output values are always
// metric: °C, mm, m/s.
package domain
