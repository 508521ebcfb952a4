// Package rego implements the IVT Rego 6xx serial frame codec.
//
// The Rego 6xx heat-pump controller speaks a simple master/slave protocol
// over a 19200 baud 8N1 serial line. The host always initiates; the
// controller answers with one of three response shapes.
//
// # Request Frame
//
// Every request is exactly nine bytes:
//
//	+--------+-----+-------------+-------------+----------+
//	|   1    |  1  |      3      |      3      |    1     |
//	+--------+-----+-------------+-------------+----------+
//	| 0x81   | cmd |  register   |    data     | checksum |
//	+--------+-----+-------------+-------------+----------+
//
// Multi-byte fields are sent MSB first in 7-bit groups, so a 16-bit value
// occupies three bytes: bits 15-14, bits 13-7 and bits 6-0. The checksum is
// the XOR of the six register and data bytes.
//
// # Response Frames
//
//   - Standard (5 bytes): 0x01, a 16-bit value in 7-bit groups, XOR checksum
//   - Confirm (1 byte): 0x01, returned after a write
//   - Text (42 bytes): 0x01, 20 characters as nibble pairs, XOR checksum
//
// Error-log responses reuse the text shape: the error id sits in bytes 1-2
// and a 15 character timestamp follows from byte 3.
//
// # Values
//
// Register values are signed 16-bit integers in tenths, so a raw 0x00D7
// (215) reads as 21.5 and 0xFFFB (-5) as -0.5. See ToFloat and FromFloat.
//
// All functions in this package are pure and safe for concurrent use.
package rego
