package bridge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/endpoint"
	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

func TestCommandMessageJSON(t *testing.T) {
	in := `{"id":"cmd-1","timestamp":"2026-03-01T07:00:00Z","command":"set","parameters":{"value":22.5},"source":"api"}`

	var cmd CommandMessage
	if err := json.Unmarshal([]byte(in), &cmd); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !cmd.Timestamp.Equal(time.Date(2026, 3, 1, 7, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", cmd.Timestamp)
	}
	if v, ok := cmd.Value(); !ok || v != 22.5 {
		t.Errorf("Value() = %v, %v", v, ok)
	}

	if err := json.Unmarshal([]byte(`{"timestamp":"yesterday"}`), &cmd); err == nil {
		t.Error("bad timestamp accepted")
	}

	var noTime CommandMessage
	if err := json.Unmarshal([]byte(`{"id":"x","command":"press"}`), &noTime); err != nil {
		t.Fatalf("Unmarshal() without timestamp error = %v", err)
	}
	if !noTime.Timestamp.IsZero() {
		t.Errorf("Timestamp = %v, want zero", noTime.Timestamp)
	}
}

func TestCommandValue(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   float64
		wantOK bool
	}{
		{"float", map[string]any{"value": 21.5}, 21.5, true},
		{"int", map[string]any{"value": 21}, 21, true},
		{"json number", map[string]any{"value": json.Number("19.5")}, 19.5, true},
		{"string", map[string]any{"value": "21"}, 0, false},
		{"missing", map[string]any{}, 0, false},
		{"nil params", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := CommandMessage{Parameters: tt.params}
			got, ok := cmd.Value()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Value() = %v, %v; want %v, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestNewAckError(t *testing.T) {
	cmd := CommandMessage{ID: "c1", EndpointID: "gt1_target"}

	if ack := NewAckError(cmd, "0x006E", ErrCodeTimeout, "no reply", 3); ack.Status != AckTimeout {
		t.Errorf("timeout code status = %s, want timeout", ack.Status)
	}
	ack := NewAckError(cmd, "0x006E", ErrCodeInvalidParameters, "out of range", 0)
	if ack.Status != AckFailed || ack.Error.Code != ErrCodeInvalidParameters || ack.CommandID != "c1" || ack.EndpointID != "gt1_target" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestNewStateMessage(t *testing.T) {
	tests := []struct {
		name  string
		desc  endpoint.Descriptor
		value endpoint.Value
		want  any
	}{
		{
			name:  "sensor",
			desc:  endpoint.Descriptor{ID: "gt1", Kind: endpoint.KindSensor, Address: rego.RegGT1, Unit: "°C"},
			value: endpoint.NumberValue(endpoint.KindSensor, -3.5, 0xFFDD),
			want:  -3.5,
		},
		{
			name:  "binary",
			desc:  endpoint.Descriptor{ID: "p1", Kind: endpoint.KindBinarySensor},
			value: endpoint.BoolValue(true, 1),
			want:  true,
		},
		{
			name:  "text",
			desc:  endpoint.Descriptor{ID: "row0", Kind: endpoint.KindTextSensor},
			value: endpoint.TextValue("IVT Greenline"),
			want:  "IVT Greenline",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewStateMessage(tt.desc, tt.value)
			if msg.Value != tt.want {
				t.Errorf("Value = %v, want %v", msg.Value, tt.want)
			}
			if msg.EndpointID != tt.desc.ID || msg.Kind != tt.desc.Kind || msg.Address != FormatAddress(tt.desc.Address) {
				t.Errorf("message = %+v", msg)
			}
		})
	}
}

func TestFormatAddress(t *testing.T) {
	if got := FormatAddress(0x006E); got != "0x006E" {
		t.Errorf("FormatAddress() = %q", got)
	}
}
