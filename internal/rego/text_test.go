package rego

import (
	"errors"
	"testing"
)

func TestDecodeText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "full row", text: "Heat pump    21.5 C ", want: "Heat pump    21.5 C"},
		{name: "short row padded", text: "GT1 30.2", want: "GT1 30.2"},
		{name: "overlong truncated", text: "0123456789abcdefghijKLMN", want: "0123456789abcdefghij"},
		{name: "blank", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeTextResponse(tt.text)
			if len(frame) != TextResponseSize {
				t.Fatalf("frame length = %d", len(frame))
			}
			got, err := DecodeText(frame)
			if err != nil {
				t.Fatalf("DecodeText() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeTextNibbles(t *testing.T) {
	// 'A' = 0x41 is sent as 0x04 0x01; high nibbles of each byte are ignored.
	frame := EncodeTextResponse("")
	frame[1], frame[2] = 0x04, 0x01
	frame[TextResponseSize-1] = Checksum(frame[1 : TextResponseSize-1])

	got, err := DecodeText(frame)
	if err != nil {
		t.Fatalf("DecodeText() error = %v", err)
	}
	if got != "A" {
		t.Errorf("DecodeText() = %q, want %q", got, "A")
	}
}

func TestDecodeTextRejects(t *testing.T) {
	frame := EncodeTextResponse("hello")
	frame[10] ^= 0x02

	var ce *ChecksumError
	if _, err := DecodeText(frame); !errors.As(err, &ce) {
		t.Errorf("DecodeText() error = %v, want *ChecksumError", err)
	}

	var short *FrameTooShortError
	if _, err := DecodeText(frame[:20]); !errors.As(err, &short) {
		t.Errorf("DecodeText() error = %v, want *FrameTooShortError", err)
	}
}

func TestDecodeErrorLog(t *testing.T) {
	frame := EncodeErrorLogResponse(0x0E, "250118 13:45:10")

	got, err := DecodeErrorLog(frame)
	if err != nil {
		t.Fatalf("DecodeErrorLog() error = %v", err)
	}
	if got.ID != 14 {
		t.Errorf("ID = %d, want 14", got.ID)
	}
	if got.Timestamp != "250118 13:45:10" {
		t.Errorf("Timestamp = %q", got.Timestamp)
	}
	if got.Description != "High pressure switch (HP)" {
		t.Errorf("Description = %q", got.Description)
	}
	if s := got.String(); s != "250118 13:45:10 High pressure switch (HP)" {
		t.Errorf("String() = %q", s)
	}
}

func TestDecodeErrorLogNoError(t *testing.T) {
	got, err := DecodeErrorLog(EncodeErrorLogResponse(NoError, ""))
	if err != nil {
		t.Fatalf("DecodeErrorLog() error = %v", err)
	}
	if got.Description != "?" {
		t.Errorf("Description = %q, want ?", got.Description)
	}
	if got.String() != "No error" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestErrorDescription(t *testing.T) {
	tests := []struct {
		id   int
		want string
	}{
		{0, "Sensor radiator return (GT1)"},
		{21, "Power failure"},
		{22, "Varmetr. delta high"},
		{23, "?"},
		{-1, "?"},
	}
	for _, tt := range tests {
		if got := ErrorDescription(tt.id); got != tt.want {
			t.Errorf("ErrorDescription(%d) = %q, want %q", tt.id, got, tt.want)
		}
	}
}
