package rego

import (
	"strings"
)

const (
	// displayChars is the number of characters in a display row.
	displayChars = 20

	// errorIDOffset is where the nibble-encoded error id starts.
	errorIDOffset = 1

	// errorTextOffset is where the error timestamp text starts.
	errorTextOffset = 3

	// errorTextChars is the length of the error timestamp, e.g. "250118 13:45:10".
	errorTextChars = 15

	// NoError is the id the controller reports when the error log is empty.
	NoError = 0xFF
)

// errorDescriptions is indexed by error id.
var errorDescriptions = []string{
	"Sensor radiator return (GT1)",
	"Outdoor sensor (GT2)",
	"Sensor hot water (GT3)",
	"Mixing valve sensor (GT4)",
	"Room sensor (GT5)",
	"Sensor compressor (GT6)",
	"Sensor heat tran fluid out (GT8)",
	"Sensor heat tran fluid in (GT9)",
	"Sensor cold tran fluid in (GT10)",
	"Sensor cold tran fluid in (GT11)",
	"Compresor circuit switch",
	"Electrical cassette",
	"HTF C=pump switch (MB2)",
	"Low pressure switch (LP)",
	"High pressure switch (HP)",
	"High return HP (GT9)",
	"HTF out max (GT8)",
	"HTF in under limit (GT10)",
	"HTF out under limit (GT11)",
	"Compressor superhear (GT6)",
	"3-phase incorrect order",
	"Power failure",
	"Varmetr. delta high",
}

// ErrorLogEntry is a decoded last/previous error response.
type ErrorLogEntry struct {
	ID          int    `json:"id"`
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// String renders the entry the way it is published as a text sensor.
func (e ErrorLogEntry) String() string {
	if e.ID == NoError {
		return "No error"
	}
	return e.Timestamp + " " + e.Description
}

// ErrorDescription returns the human-readable text for an error id, or "?"
// when the id is not in the table.
func ErrorDescription(id int) string {
	if id < 0 || id >= len(errorDescriptions) {
		return "?"
	}
	return errorDescriptions[id]
}

// DecodeText validates a 42-byte display response and returns its text with
// trailing blanks removed.
func DecodeText(frame []byte) (string, error) {
	if err := validate(frame, TextResponseSize); err != nil {
		return "", err
	}
	return strings.TrimRight(decodeNibbles(frame[1:1+2*displayChars]), " \x00"), nil
}

// DecodeErrorLog validates a 42-byte error response and extracts id,
// timestamp and description.
func DecodeErrorLog(frame []byte) (ErrorLogEntry, error) {
	if err := validate(frame, TextResponseSize); err != nil {
		return ErrorLogEntry{}, err
	}

	id := int(nibblePair(frame[errorIDOffset], frame[errorIDOffset+1]))
	text := decodeNibbles(frame[errorTextOffset : errorTextOffset+2*errorTextChars])

	return ErrorLogEntry{
		ID:          id,
		Timestamp:   strings.TrimRight(text, " \x00"),
		Description: ErrorDescription(id),
	}, nil
}

// EncodeTextResponse builds a display response for text, padding with blanks
// and truncating to one display row.
func EncodeTextResponse(text string) []byte {
	frame := make([]byte, TextResponseSize)
	frame[0] = AddrHost
	encodeNibbles(frame[1:1+2*displayChars], padRight(text, displayChars))
	frame[TextResponseSize-1] = Checksum(frame[1 : TextResponseSize-1])
	return frame
}

// EncodeErrorLogResponse builds an error-log response for id and timestamp.
func EncodeErrorLogResponse(id byte, timestamp string) []byte {
	frame := make([]byte, TextResponseSize)
	frame[0] = AddrHost
	frame[errorIDOffset] = id >> 4
	frame[errorIDOffset+1] = id & 0x0F //nolint:mnd // low nibble
	encodeNibbles(frame[errorTextOffset:errorTextOffset+2*errorTextChars], padRight(timestamp, errorTextChars))
	frame[TextResponseSize-1] = Checksum(frame[1 : TextResponseSize-1])
	return frame
}

// nibblePair joins the low nibbles of hi and lo into one byte.
func nibblePair(hi, lo byte) byte {
	return (hi&0x0F)<<4 | lo&0x0F
}

func decodeNibbles(b []byte) string {
	var sb strings.Builder
	sb.Grow(len(b) / 2)
	for i := 0; i+1 < len(b); i += 2 {
		sb.WriteByte(nibblePair(b[i], b[i+1]))
	}
	return sb.String()
}

func encodeNibbles(dst []byte, s string) {
	for i := 0; i < len(s) && 2*i+1 < len(dst); i++ {
		dst[2*i] = s[i] >> 4
		dst[2*i+1] = s[i] & 0x0F //nolint:mnd // low nibble
	}
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat(" ", n-len(s))
}
