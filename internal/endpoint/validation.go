package endpoint

import (
	"fmt"
	"math"
	"slices"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Bounds accepted for writable numbers.
const (
	MinValue = -100.0
	MaxValue = 100.0
	MinStep  = 0.01
	MaxStep  = 1.0

	maxIDLength = 64
)

// ValidateDescriptor checks d and fills in defaulted fields.
// Returns an error wrapping ErrInvalidDescriptor describing the first failure.
func ValidateDescriptor(d *Descriptor) error {
	if d == nil {
		return ErrInvalidDescriptor
	}
	if d.ID == "" || len(d.ID) > maxIDLength {
		return fmt.Errorf("%w: id must be 1-%d characters", ErrInvalidDescriptor, maxIDLength)
	}
	if d.Name == "" {
		d.Name = d.ID
	}

	allowed, ok := allowedDecode[d.Kind]
	if !ok {
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidDescriptor, d.ID, d.Kind)
	}
	if d.Decode == DecodeNone {
		d.Decode = defaultDecode[d.Kind]
	}
	if !slices.Contains(allowed, d.Decode) {
		return fmt.Errorf("%w: %s: decode %q not valid for %s", ErrInvalidDescriptor, d.ID, d.Decode, d.Kind)
	}

	if !d.Command.Valid() {
		return fmt.Errorf("%w: %s: command 0x%02X above 0x%02X", ErrInvalidDescriptor, d.ID, byte(d.Command), byte(rego.MaxCommand))
	}
	if d.Address > rego.MaxAddress {
		return fmt.Errorf("%w: %s: address 0x%04X above 0x%04X", ErrInvalidDescriptor, d.ID, d.Address, rego.MaxAddress)
	}
	if d.UpdateInterval < 0 {
		return fmt.Errorf("%w: %s: negative update interval", ErrInvalidDescriptor, d.ID)
	}

	switch d.Kind {
	case KindNumber:
		return validateNumber(d)
	case KindButton:
		if !d.WriteCommand.Valid() {
			return fmt.Errorf("%w: %s: write command 0x%02X out of range", ErrInvalidDescriptor, d.ID, byte(d.WriteCommand))
		}
	}
	return nil
}

func validateNumber(d *Descriptor) error {
	if !d.WriteCommand.Valid() {
		return fmt.Errorf("%w: %s: write command 0x%02X out of range", ErrInvalidDescriptor, d.ID, byte(d.WriteCommand))
	}
	if d.Min < MinValue || d.Max > MaxValue || d.Min >= d.Max {
		return fmt.Errorf("%w: %s: bounds [%g, %g] must be ordered and within [%g, %g]",
			ErrInvalidDescriptor, d.ID, d.Min, d.Max, MinValue, MaxValue)
	}
	if d.Step < MinStep || d.Step > MaxStep {
		return fmt.Errorf("%w: %s: step %g outside [%g, %g]", ErrInvalidDescriptor, d.ID, d.Step, MinStep, MaxStep)
	}
	if d.Decode == DecodeRaw && (d.Min < 0 || d.Step != 1) {
		return fmt.Errorf("%w: %s: raw numbers need a minimum of at least 0 and a step of 1", ErrInvalidDescriptor, d.ID)
	}
	return nil
}

// Quantize checks v against the bounds of a number descriptor and rounds it
// to the nearest multiple of Step.
//
// Returns:
//   - float64: Rounded value, never outside [Min, Max]
//   - error: *OutOfRangeError if v is outside [Min, Max] or not a number
func Quantize(d Descriptor, v float64) (float64, error) {
	if math.IsNaN(v) || v < d.Min || v > d.Max {
		return 0, &OutOfRangeError{ID: d.ID, Value: v, Min: d.Min, Max: d.Max}
	}

	q := math.Round(v/d.Step) * d.Step
	// Step is at least 0.01, so two decimals remove float noise.
	q = math.Round(q*100) / 100 //nolint:mnd // two decimal places

	return math.Max(d.Min, math.Min(d.Max, q)), nil
}
