package domain

// Unit conversions from the imperial source units to the metric output units.

// FahrenheitToCelsius converts a temperature in °F to °C.
func FahrenheitToCelsius(f float64) float64 {
	return (f - 32) * 5 / 9
}

// CelsiusToFahrenheit is the inverse conversion, used when synthesizing
// imperial source data.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// InchesToMillimeters converts a precipitation depth in inches to mm.
func InchesToMillimeters(in float64) float64 {
	return in * 25.4
}

// KnotsToMetersPerSecond converts a wind speed in knots to m/s.
func KnotsToMetersPerSecond(kt float64) float64 {
	return kt * 0.514444
}

// TenthsToUnits scales a GHCN-D/ISD raw value from tenths to whole units.
func TenthsToUnits(v float64) float64 {
	return v / 10
}

// IsGSODMissing reports whether a GSOD value is one of the dataset's
// column-width missing sentinels.
func IsGSODMissing(v float64) bool {
	return v == 99.99 || v == 999.9 || v == 9999.9
}
