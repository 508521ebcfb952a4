package endpoint

import (
	"errors"
	"math"
	"testing"
)

func TestQuantize(t *testing.T) {
	d := Descriptor{ID: "n", Min: -10, Max: 10, Step: 0.1}

	tests := []struct {
		in      float64
		want    float64
		wantErr bool
	}{
		{in: 0.04, want: 0},
		{in: 0.07, want: 0.1},
		{in: -3.33, want: -3.3},
		{in: 10, want: 10},
		{in: 10.01, wantErr: true},
		{in: -10.01, wantErr: true},
		{in: math.NaN(), wantErr: true},
	}

	for _, tt := range tests {
		got, err := Quantize(d, tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("Quantize(%v) error = %v, want ErrOutOfRange", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("Quantize(%v) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Quantize(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NumberValue(KindSensor, 21.5, 215), "21.5"},
		{BoolValue(true, 1), "on"},
		{BoolValue(false, 0), "off"},
		{TextValue("Hot water"), `"Hot water"`},
	}
	for _, tt := range tests {
		if got := tt.v.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
