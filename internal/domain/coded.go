package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// ISD coded fields pack a measurement and its quality flag (plus, for wind,
// direction and observation type) into one comma-separated string, e.g.
// temperature "+0011,1" or wind "160,1,N,0021,1". Raw values are tenths of
// units; an all-nines value segment marks a missing observation.

const isdMissingValue = 9999

// CodedValue is one measurement decoded from an ISD coded field.
type CodedValue struct {
	Value   float64 // scaled to whole units (°C, m/s)
	Quality string
	Missing bool
}

// ParseScaledValue decodes a two-segment "value,quality" field such as TMP or
// DEW. The value segment is signed tenths of °C.
func ParseScaledValue(field string) (CodedValue, error) {
	return parseSegments(field, 2, 0, 1)
}

// ParseWindSpeed decodes the five-segment WND field
// "direction,direction_quality,type,speed,speed_quality". The speed segment
// is tenths of m/s.
func ParseWindSpeed(field string) (CodedValue, error) {
	return parseSegments(field, 5, 3, 4)
}

func parseSegments(field string, want, valueIdx, qualityIdx int) (CodedValue, error) {
	parts := strings.Split(field, ",")
	if len(parts) != want {
		return CodedValue{}, fmt.Errorf("coded field %q: want %d segments, got %d", field, want, len(parts))
	}

	raw := strings.TrimSpace(parts[valueIdx])
	n, err := strconv.Atoi(strings.TrimPrefix(raw, "+"))
	if err != nil {
		return CodedValue{}, fmt.Errorf("coded field %q: bad value segment %q", field, raw)
	}

	quality := strings.TrimSpace(parts[qualityIdx])
	if n == isdMissingValue {
		return CodedValue{Quality: quality, Missing: true}, nil
	}
	return CodedValue{Value: TenthsToUnits(float64(n)), Quality: quality}, nil
}
