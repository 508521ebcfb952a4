package rego

import "strings"

// System register addresses (read with CmdReadSystemRegister).
//
//nolint:mnd // Addresses come from the Rego 6xx register map.
const (
	// Sensor values.
	RegGT1  uint16 = 0x0209 // radiator return
	RegGT2  uint16 = 0x020A // outdoor
	RegGT3  uint16 = 0x020B // hot water
	RegGT4  uint16 = 0x020C // forward
	RegGT5  uint16 = 0x020D // room
	RegGT6  uint16 = 0x020E // compressor
	RegGT8  uint16 = 0x020F // heat fluid out
	RegGT9  uint16 = 0x0210 // heat fluid in
	RegGT10 uint16 = 0x0211 // cold fluid in
	RegGT11 uint16 = 0x0212 // cold fluid out
	RegGT3X uint16 = 0x0213 // external hot water

	// Device states.
	RegGroundLoopPumpP3 uint16 = 0x01FD
	RegCompressor       uint16 = 0x01FE
	RegAddHeat3kW       uint16 = 0x01FF
	RegAddHeat6kW       uint16 = 0x0200
	RegRadiatorPumpP1   uint16 = 0x0203
	RegHeatCarrierP2    uint16 = 0x0204
	RegThreeWayValveVXV uint16 = 0x0205
	RegAlarm            uint16 = 0x0206

	// Control data.
	RegGT1Target      uint16 = 0x006E
	RegGT1On          uint16 = 0x006F
	RegGT1Off         uint16 = 0x0070
	RegGT3Target      uint16 = 0x002B
	RegGT3On          uint16 = 0x0073
	RegGT3Off         uint16 = 0x0074
	RegGT4Target      uint16 = 0x006D
	RegAddHeatPower   uint16 = 0x006C
	RegHeatCurve      uint16 = 0x0000
	RegHeatCurveFine  uint16 = 0x0001
	RegHeatCurveDiff  uint16 = 0x0002
	RegIndoorTempSet  uint16 = 0x0021
	RegCurveInflIndor uint16 = 0x0022
	RegAdjCurveAt20   uint16 = 0x001E
	RegAdjCurveAtM35  uint16 = 0x0008
)

// Front panel addresses (CmdReadFrontPanel / CmdWriteFrontPanel).
//
//nolint:mnd // Addresses come from the Rego 6xx register map.
const (
	PanelButtonPower  uint16 = 0x0008
	PanelButtonLeft   uint16 = 0x0009
	PanelButtonMiddle uint16 = 0x000A
	PanelButtonRight  uint16 = 0x000B
	PanelLEDPower     uint16 = 0x0012
	PanelLEDPump      uint16 = 0x0013
	PanelLEDHeating   uint16 = 0x0014
	PanelLEDBoiler    uint16 = 0x0015
	PanelLEDAlarm     uint16 = 0x0016
	PanelWheel        uint16 = 0x0044
)

// DisplayRows is the number of text rows CmdReadDisplay can address.
const DisplayRows = 4

var sensorRegisters = map[string]uint16{
	"gt1":  RegGT1,
	"gt2":  RegGT2,
	"gt3":  RegGT3,
	"gt4":  RegGT4,
	"gt5":  RegGT5,
	"gt6":  RegGT6,
	"gt8":  RegGT8,
	"gt9":  RegGT9,
	"gt10": RegGT10,
	"gt11": RegGT11,
	"gt3x": RegGT3X,
}

// LookupSensorRegister maps a temperature sensor name such as "gt1" or
// "GT3X" to its system register address.
func LookupSensorRegister(name string) (uint16, bool) {
	addr, ok := sensorRegisters[strings.ToLower(strings.TrimSpace(name))]
	return addr, ok
}
