package endpoint

import (
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-rego6xx/internal/rego"
)

// Kind is the role an endpoint plays for the host.
type Kind string

// Endpoint kinds.
const (
	KindSensor       Kind = "sensor"
	KindBinarySensor Kind = "binary_sensor"
	KindNumber       Kind = "number"
	KindTextSensor   Kind = "text_sensor"
	KindButton       Kind = "button"
)

// AllKinds returns every endpoint kind.
func AllKinds() []Kind {
	return []Kind{KindSensor, KindBinarySensor, KindNumber, KindTextSensor, KindButton}
}

// Writable reports whether the kind accepts writes.
func (k Kind) Writable() bool {
	return k == KindNumber || k == KindButton
}

// DecodeRule selects how a response frame becomes a Value.
type DecodeRule string

// Decode rules.
const (
	// DecodeScaled is a signed 16-bit value divided by rego.Scale.
	DecodeScaled DecodeRule = "scaled"

	// DecodeRaw is the unsigned 16-bit register value.
	DecodeRaw DecodeRule = "raw"

	// DecodeBool is non-zero = true.
	DecodeBool DecodeRule = "bool"

	// DecodeDisplay is one 20-character display row.
	DecodeDisplay DecodeRule = "display"

	// DecodeErrorLog is a last or previous error log entry.
	DecodeErrorLog DecodeRule = "error_log"

	// DecodeNone is used by buttons, which are never read.
	DecodeNone DecodeRule = ""
)

// IsText reports whether the rule expects a 42-byte text response.
func (r DecodeRule) IsText() bool {
	return r == DecodeDisplay || r == DecodeErrorLog
}

// defaultDecode is the rule used when a descriptor leaves Decode empty.
var defaultDecode = map[Kind]DecodeRule{
	KindSensor:       DecodeScaled,
	KindBinarySensor: DecodeBool,
	KindNumber:       DecodeScaled,
	KindTextSensor:   DecodeDisplay,
	KindButton:       DecodeNone,
}

// allowedDecode lists the rules each kind may use.
var allowedDecode = map[Kind][]DecodeRule{
	KindSensor:       {DecodeScaled, DecodeRaw},
	KindBinarySensor: {DecodeBool},
	KindNumber:       {DecodeScaled, DecodeRaw},
	KindTextSensor:   {DecodeDisplay, DecodeErrorLog},
	KindButton:       {DecodeNone},
}

// Descriptor declares one endpoint. Its identity is fixed once registered.
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`

	// Decode defaults per kind when empty.
	Decode DecodeRule `json:"decode"`

	Command rego.Command `json:"command"`
	Address uint16       `json:"address"`

	// WriteCommand is used by numbers and buttons.
	WriteCommand rego.Command `json:"write_command,omitempty"`

	// Numbers only.
	Min  float64 `json:"min,omitempty"`
	Max  float64 `json:"max,omitempty"`
	Step float64 `json:"step,omitempty"`

	// ButtonValue is the raw value a button press writes.
	ButtonValue uint16 `json:"button_value,omitempty"`

	// UpdateInterval is the minimum time between polls. Zero polls every sweep.
	UpdateInterval time.Duration `json:"update_interval"`

	Unit string `json:"unit,omitempty"`
}

// Value is a decoded endpoint reading.
type Value struct {
	Kind   Kind    `json:"kind"`
	Number float64 `json:"number,omitempty"`
	Bool   bool    `json:"bool,omitempty"`
	Text   string  `json:"text,omitempty"`
	Raw    uint16  `json:"raw"`
}

// NumberValue builds a numeric Value.
func NumberValue(kind Kind, n float64, raw uint16) Value {
	return Value{Kind: kind, Number: n, Raw: raw}
}

// BoolValue builds a binary Value.
func BoolValue(b bool, raw uint16) Value {
	return Value{Kind: KindBinarySensor, Bool: b, Raw: raw}
}

// TextValue builds a text Value.
func TextValue(s string) Value {
	return Value{Kind: KindTextSensor, Text: s}
}

// Payload returns the value in its natural Go type: float64, bool or string.
func (v Value) Payload() any {
	switch v.Kind {
	case KindBinarySensor:
		return v.Bool
	case KindTextSensor:
		return v.Text
	default:
		return v.Number
	}
}

// String formats the value for logs.
func (v Value) String() string {
	switch v.Kind {
	case KindBinarySensor:
		if v.Bool {
			return "on"
		}
		return "off"
	case KindTextSensor:
		return strconv.Quote(v.Text)
	default:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
}

// PendingWrite is a value waiting for its endpoint's turn.
// Seq changes on every SetPendingWrite or Press so a stale clear cannot
// drop a newer value.
type PendingWrite struct {
	Value float64
	Raw   uint16
	Seq   uint64
}

// State is a point-in-time view of an endpoint.
type State struct {
	Descriptor Descriptor `json:"descriptor"`
	Value      *Value     `json:"value,omitempty"`
	UpdatedAt  *time.Time `json:"updated_at,omitempty"`
	Pending    *float64   `json:"pending,omitempty"`
}
