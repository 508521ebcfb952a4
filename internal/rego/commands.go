package rego

import "fmt"

// Device addresses on the Rego bus.
const (
	// AddrHeatPump addresses requests to the heat-pump controller.
	AddrHeatPump byte = 0x81

	// AddrHost is the address the controller puts in front of every response.
	AddrHost byte = 0x01
)

// Command is a Rego command id. Valid ids are 0x00-0x7F.
type Command byte

// Command ids understood by Rego 6xx controllers.
const (
	CmdReadFrontPanel      Command = 0x00
	CmdWriteFrontPanel     Command = 0x01
	CmdReadSystemRegister  Command = 0x02
	CmdWriteSystemRegister Command = 0x03
	CmdReadTimerRegister   Command = 0x04
	CmdWriteTimerRegister  Command = 0x05
	CmdReadRegister1B61    Command = 0x06
	CmdWriteRegister1B61   Command = 0x07
	CmdReadDisplay         Command = 0x20
	CmdReadLastError       Command = 0x40
	CmdReadPreviousError   Command = 0x42
	CmdReadRegoVersion     Command = 0x7F
)

// MaxCommand is the largest command id that fits in the 7-bit command byte.
const MaxCommand Command = 0x7F

// MaxAddress is the highest register address endpoints may reference.
const MaxAddress uint16 = 0x0300

var commandNames = map[Command]string{
	CmdReadFrontPanel:      "read_front_panel",
	CmdWriteFrontPanel:     "write_front_panel",
	CmdReadSystemRegister:  "read_system_register",
	CmdWriteSystemRegister: "write_system_register",
	CmdReadTimerRegister:   "read_timer_register",
	CmdWriteTimerRegister:  "write_timer_register",
	CmdReadRegister1B61:    "read_register_1b61",
	CmdWriteRegister1B61:   "write_register_1b61",
	CmdReadDisplay:         "read_display",
	CmdReadLastError:       "read_last_error",
	CmdReadPreviousError:   "read_previous_error",
	CmdReadRegoVersion:     "read_rego_version",
}

// String returns the command name, or its hex id when unknown.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("cmd_0x%02X", byte(c))
}

// Valid reports whether c fits in seven bits.
func (c Command) Valid() bool {
	return c <= MaxCommand
}

// IsWrite reports whether c is one of the register write commands, which the
// controller answers with a single confirm byte.
func (c Command) IsWrite() bool {
	switch c {
	case CmdWriteFrontPanel, CmdWriteSystemRegister, CmdWriteTimerRegister, CmdWriteRegister1B61:
		return true
	default:
		return false
	}
}

// ResponseSize returns the length of the response the controller sends for c.
func (c Command) ResponseSize() int {
	switch {
	case c.IsWrite():
		return ConfirmResponseSize
	case c == CmdReadDisplay, c == CmdReadLastError, c == CmdReadPreviousError:
		return TextResponseSize
	default:
		return ValueResponseSize
	}
}
