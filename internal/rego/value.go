package rego

import "math"

// Scale is the fixed factor between raw register values and physical units.
const Scale = 10

// ToFloat converts a raw register value into its physical value.
// The raw value is a two's complement int16 in tenths.
func ToFloat(raw uint16) float64 {
	return float64(int16(raw)) / Scale
}

// FromFloat converts a physical value into a raw register value, rounding to
// the nearest tenth. Values outside the int16 range saturate.
func FromFloat(value float64) uint16 {
	scaled := math.Round(value * Scale)
	switch {
	case scaled > math.MaxInt16:
		scaled = math.MaxInt16
	case scaled < math.MinInt16:
		scaled = math.MinInt16
	}
	return uint16(int16(scaled))
}

// ToBool interprets a raw register value as a flag. Any non-zero value is true.
func ToBool(raw uint16) bool {
	return raw != 0
}
